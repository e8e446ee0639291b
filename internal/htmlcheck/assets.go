package htmlcheck

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AssetsResolvable 用 DOM 选择器收集 img[src] 与 script[src]，返回指向本地但不存在的 src（原值）。
//
// 与其他检查不同，这里使用真正的 HTML 解析（goquery），因此注释里的标签不会被误计。
func AssetsResolvable(content, baseDir string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%w", err)
	}

	out := make([]string, 0)
	seen := make(map[string]struct{})
	doc.Find("img[src], script[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || IsAbsoluteURL(src) {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		if !Resolves(baseDir, src) {
			out = append(out, src)
		}
	})
	return out, nil
}
