package htmlcheck

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	hrefRE       = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	linkTagRE    = regexp.MustCompile(`(?i)<link\b[^>]*>`)
	stylesheetRE = regexp.MustCompile(`(?i)\brel\s*=\s*["']?[^"'>]*\bstylesheet\b`)
	styleBlockRE = regexp.MustCompile(`(?i)<style(?:\s[^>]*)?>`)
	styleAttrRE  = regexp.MustCompile(`(?i)\sstyle\s*=`)
)

// StyleReport 是 Styles 的结果。
type StyleReport struct {
	// HasStyles 为真表示存在样式表链接、<style> 块或 style 属性之一。
	HasStyles bool
	// Stylesheets 是所有样式表链接的 href（按出现顺序）。
	Stylesheets []string
	// Unresolved 是指向本地但不存在的样式表 href（原值）。
	Unresolved []string
}

// Styles 收集 <link rel="stylesheet"> 的 href，并校验本地路径是否存在于 baseDir 下。
func Styles(content, baseDir string) StyleReport {
	rep := StyleReport{
		Stylesheets: make([]string, 0),
		Unresolved:  make([]string, 0),
	}
	for _, tag := range linkTagRE.FindAllString(content, -1) {
		if !stylesheetRE.MatchString(tag) {
			continue
		}
		hrefs := extractHrefs(tag)
		if len(hrefs) == 0 {
			continue
		}
		href := hrefs[0]
		rep.Stylesheets = append(rep.Stylesheets, href)
		if IsAbsoluteURL(href) {
			continue
		}
		if !Resolves(baseDir, href) {
			rep.Unresolved = append(rep.Unresolved, href)
		}
	}
	rep.HasStyles = len(rep.Stylesheets) > 0 ||
		styleBlockRE.MatchString(content) ||
		styleAttrRE.MatchString(content)
	return rep
}

// LinksResolvable 收集所有 href 值，返回看起来像本地文件引用但在 baseDir 下不存在的那些（原值）。
//
// 跳过：绝对 URL（带 scheme 或以 // 开头）、片段（#...）、mailto:。
// 只有包含字面 '.' 的值才被视为文件引用（启发式）。
func LinksResolvable(content, baseDir string) []string {
	out := make([]string, 0)
	for _, href := range extractHrefs(content) {
		if !looksLikeFileRef(href) {
			continue
		}
		if !Resolves(baseDir, href) {
			out = append(out, href)
		}
	}
	return out
}

func extractHrefs(s string) []string {
	ms := hrefRE.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func looksLikeFileRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(ref), "mailto:") {
		return false
	}
	if IsAbsoluteURL(ref) {
		return false
	}
	return strings.Contains(ref, ".")
}

// IsAbsoluteURL 判断 ref 是否为绝对 URL：协议相对（//host）或带 scheme（https:、data: 等）。
func IsAbsoluteURL(ref string) bool {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "//") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		// 解析失败的值按本地路径处理，交给存在性检查去失败。
		return false
	}
	return u.Scheme != ""
}

// Resolves 判断本地引用 ref 在 baseDir 下是否存在。
//
// ref 的 ?query 与 #fragment 会被截掉；以 '/' 开头的路径同样相对 baseDir。
// 路径按 URL 百分号编码解码后再查找（my%20page.html 对应 "my page.html"），
// 与浏览器一致；因此文件名本身含 "%20" 的文件会被判为不存在。
func Resolves(baseDir, ref string) bool {
	p := ref
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		// 只剩 query/fragment：指向当前页面本身。
		return true
	}
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	p = strings.TrimLeft(p, "/")
	_, err := os.Stat(filepath.Join(baseDir, filepath.FromSlash(p)))
	return err == nil
}
