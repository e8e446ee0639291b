// Package htmlcheck 实现针对静态 HTML 文件的启发式检查。
//
// 这里的检查全部基于字符串包含与正则匹配，不是 HTML 解析器（assets 检查除外）。
// 这种“近似”是契约的一部分：上层的通过/失败判定以这些启发式的字面行为为准，
// 不要悄悄把它们升级为 DOM 解析。
package htmlcheck

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

const (
	// DefaultMinSize 是 NonEmpty 的字节阈值：文件大小必须严格大于它。
	DefaultMinSize int64 = 50
	// DefaultMinTextChars 是 HasVisibleContent 的非空白字符阈值：必须严格大于它。
	DefaultMinTextChars = 10
)

// DefaultBalancedTags 是 BalancedTags 的标签白名单（也是结果的输出顺序）。
var DefaultBalancedTags = []string{
	"html", "head", "title", "body",
	"header", "nav", "main", "section", "footer",
	"div", "span", "p", "a", "button",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"ul", "ol", "li",
	"script", "style",
}

// HasBasicStructure 判断内容（忽略大小写）是否包含 doctype 声明或 <html 根元素开头。
func HasBasicStructure(content string) bool {
	lc := strings.ToLower(content)
	return strings.Contains(lc, "<!doctype html") || strings.Contains(lc, "<html")
}

// TagMismatch 描述某个标签的开/闭计数不一致。
type TagMismatch struct {
	Tag   string
	Open  int
	Close int
}

func (m TagMismatch) String() string {
	return fmt.Sprintf("<%s>：打开 %d 次，关闭 %d 次", m.Tag, m.Open, m.Close)
}

// BalancedTags 对白名单内每个标签统计开标签与闭标签出现次数，返回所有不相等的标签。
//
// 匹配规则（启发式，不是解析器）：
// - 开标签：<name> 或 <name 后跟空白再到第一个 '>'，大小写不敏感
// - 闭标签：严格的 </name>，大小写不敏感
//
// 已知会误判：自闭合写法（<div />）、属性值里含 '>'、注释或字符串里的标签。
func BalancedTags(content string, tagNames []string) []TagMismatch {
	out := make([]TagMismatch, 0)
	for _, name := range tagNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		openRE, closeRE := tagPatterns(name)
		open := len(openRE.FindAllStringIndex(content, -1))
		closed := len(closeRE.FindAllStringIndex(content, -1))
		if open != closed {
			out = append(out, TagMismatch{Tag: name, Open: open, Close: closed})
		}
	}
	return out
}

var (
	tagPatternMu    sync.Mutex
	tagPatternCache = map[string][2]*regexp.Regexp{}
)

// tagPatterns 返回某个标签的开/闭正则（按标签名缓存）。
func tagPatterns(name string) (*regexp.Regexp, *regexp.Regexp) {
	tagPatternMu.Lock()
	defer tagPatternMu.Unlock()
	if p, ok := tagPatternCache[name]; ok {
		return p[0], p[1]
	}
	q := regexp.QuoteMeta(name)
	p := [2]*regexp.Regexp{
		regexp.MustCompile(`(?i)<` + q + `(?:\s[^>]*)?>`),
		regexp.MustCompile(`(?i)</` + q + `>`),
	}
	tagPatternCache[name] = p
	return p[0], p[1]
}

var (
	contentTagRE = regexp.MustCompile(`(?i)<(?:h[1-6]|p|div)(?:\s[^>]*)?>`)
	// elementTagRE 只匹配元素标签（'<' 后紧跟字母或 '/'）；<!DOCTYPE> 与注释不算标签。
	elementTagRE = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

// HasVisibleContent 要求同时满足：
// - 出现标题/段落/div 开标签
// - 去掉所有元素标签后，剩余非空白字符数严格大于 minChars
func HasVisibleContent(content string, minChars int) bool {
	if !contentTagRE.MatchString(content) {
		return false
	}
	return VisibleTextChars(content) > minChars
}

// VisibleTextChars 返回去掉 HTML 注释与元素标签后的非空白字符数（按 rune 计）。
// <!DOCTYPE> 不是元素标签，会计入。
func VisibleTextChars(content string) int {
	text := htmlCommentRE.ReplaceAllString(content, "")
	text = elementTagRE.ReplaceAllString(text, "")
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

var (
	htmlCommentRE  = regexp.MustCompile(`(?s)<!--.*?-->`)
	scriptBodyRE   = regexp.MustCompile(`(?is)(<script\b[^>]*>)(.*?)(</script\s*>)`)
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// 行注释：'//' 前不能是 ':'（https://）、引号、'=' 或 '('（字符串里的 //cdn 地址）。
	lineCommentRE = regexp.MustCompile(`(?m)(^|[^:"'=(\\])//.*$`)
	scriptErrorRE = regexp.MustCompile(`\balert\s*\(|\bconsole\.error\s*\(`)
)

// NoObviousScriptErrors 查找未被注释掉的 alert( / console.error( 调用。
// 返回命中的代码行（去首尾空白）；为空表示通过。
//
// HTML 注释全局去掉；JS 的 /* */ 与 // 注释只在 <script> 内容里去掉，
// 属性里的 //cdn 地址不会吞掉同一行后面的代码。
func NoObviousScriptErrors(content string) []string {
	s := htmlCommentRE.ReplaceAllString(content, "")
	s = scriptBodyRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := scriptBodyRE.FindStringSubmatch(m)
		body := blockCommentRE.ReplaceAllString(sub[2], "")
		body = lineCommentRE.ReplaceAllString(body, "$1")
		return sub[1] + body + sub[3]
	})

	hits := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if scriptErrorRE.MatchString(line) {
			hits = append(hits, strings.TrimSpace(line))
		}
	}
	return hits
}
