package domain

import (
	"fmt"
	"strings"
)

// CheckID 是检查项的稳定标识（配置文件、JSON 输出都使用它）。
type CheckID string

const (
	CheckExists    CheckID = "exists"
	CheckSize      CheckID = "size"
	CheckStructure CheckID = "structure"
	CheckTags      CheckID = "tags"
	CheckContent   CheckID = "content"
	CheckScripts   CheckID = "scripts"
	CheckStyles    CheckID = "styles"
	CheckCSS       CheckID = "css"
	CheckLinks     CheckID = "links"
	CheckAssets    CheckID = "assets"
)

// AllChecks 是固定的执行顺序。无论配置如何选择子集，执行顺序都以此为准。
var AllChecks = []CheckID{
	CheckExists,
	CheckSize,
	CheckStructure,
	CheckTags,
	CheckContent,
	CheckScripts,
	CheckStyles,
	CheckCSS,
	CheckLinks,
	CheckAssets,
}

// DefaultChecks 是未配置时启用的检查：除 assets 以外的全部。
var DefaultChecks = []CheckID{
	CheckExists,
	CheckSize,
	CheckStructure,
	CheckTags,
	CheckContent,
	CheckScripts,
	CheckStyles,
	CheckCSS,
	CheckLinks,
}

// ParseCheckID 校验并规范化 check id（大小写/空白不敏感）。
func ParseCheckID(s string) (CheckID, error) {
	id := CheckID(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range AllChecks {
		if c == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("未知检查项：%q", s)
}

var remediations = map[CheckID]string{
	CheckExists:    "确认入口文件存在于项目根目录",
	CheckSize:      "确认 HTML 文件不是空文件或占位文件",
	CheckStructure: "确认文件包含 <!DOCTYPE html> 或 <html> 根元素",
	CheckTags:      "检查列出的标签是否都已正确闭合",
	CheckContent:   "确认页面包含标题/段落/区块以及可见文本",
	CheckScripts:   "移除页面内未注释的 alert() / console.error() 调用",
	CheckStyles:    "为页面添加样式表链接、<style> 块或 style 属性",
	CheckCSS:       "确认样式表链接指向存在的文件",
	CheckLinks:     "确认所有本地链接都指向存在的文件",
	CheckAssets:    "确认图片与脚本的 src 指向存在的文件",
}

// Remediation 返回某个检查失败时给用户的修复建议。
func Remediation(id CheckID) string {
	return remediations[id]
}
