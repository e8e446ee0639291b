package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/pagegate/internal/app/run"
	"github.com/John-Robertt/pagegate/internal/config"
	"github.com/John-Robertt/pagegate/internal/domain"
)

var _ run.Observer = (*console)(nil)

// console 把检查事件逐行输出到终端。
//
// - 每条执行过的检查一行：✅/❌ + 描述，失败时缩进列出细节
// - skipped 不输出
// - 结束时输出汇总；有失败时再列出失败项与修复建议（只根据失败的检查项生成）
type console struct {
	w io.Writer

	ok   *color.Color
	bad  *color.Color
	dim  *color.Color
	bold *color.Color
}

func newConsole(w io.Writer, useColor bool) *console {
	c := &console{
		w:    w,
		ok:   color.New(color.FgGreen),
		bad:  color.New(color.FgRed),
		dim:  color.New(color.Faint),
		bold: color.New(color.Bold),
	}
	for _, cc := range []*color.Color{c.ok, c.bad, c.dim, c.bold} {
		if useColor {
			cc.EnableColor()
		} else {
			cc.DisableColor()
		}
	}
	return c
}

// colorEnabled：只有写到终端且未设置 NO_COLOR 时才输出颜色。
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *console) OnStart(eff config.EffectiveConfig) {
	fmt.Fprintf(c.w, "%s %s\n", c.bold.Sprint("pagegate"), eff.Root)
	fmt.Fprintf(c.w, "%s\n", c.dim.Sprintf("入口：%s", eff.Entry))
}

func (c *console) OnFilesDiscovered(files []string) {
	fmt.Fprintf(c.w, "%s\n\n", c.dim.Sprintf("目标文件：%d 个", len(files)))
}

func (c *console) OnCheckDone(res domain.CheckResult) {
	switch res.Status {
	case domain.StatusPassed:
		fmt.Fprintf(c.w, "✅ %s\n", c.ok.Sprint(res.Message))
	case domain.StatusFailed:
		fmt.Fprintf(c.w, "❌ %s\n", c.bad.Sprint(res.Message))
		for _, d := range res.Details {
			fmt.Fprintf(c.w, "   - %s\n", d)
		}
	}
}

func (c *console) OnFinish(rr domain.RunReport) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.bold.Sprint("检查汇总"))
	fmt.Fprintf(c.w, "  通过：%s\n", c.ok.Sprint(rr.Summary.Passed))
	fmt.Fprintf(c.w, "  失败：%s\n", c.bad.Sprint(rr.Summary.Failed))
	if rr.Summary.Skipped > 0 {
		fmt.Fprintf(c.w, "  跳过：%s\n", c.dim.Sprint(rr.Summary.Skipped))
	}

	if rr.OK() {
		fmt.Fprintf(c.w, "\n✅ %s\n", c.ok.Sprint("全部检查通过，可以部署。"))
		return
	}

	failures := rr.Failures()
	fmt.Fprintf(c.w, "\n❌ %s\n", c.bad.Sprintf("发现 %d 个问题，部署前请修复：", len(failures)))
	for _, f := range failures {
		fmt.Fprintf(c.w, "  - [%s] %s\n", f.Check, run.Describe(f))
	}

	fmt.Fprintf(c.w, "\n%s\n", c.bold.Sprint("修复建议："))
	for _, id := range failedChecks(failures) {
		fmt.Fprintf(c.w, "  • %s\n", domain.Remediation(id))
	}
}

// failedChecks 按固定检查顺序返回出现过失败的检查项（去重）。
func failedChecks(failures []domain.CheckResult) []domain.CheckID {
	seen := make(map[domain.CheckID]bool, len(failures))
	for _, f := range failures {
		seen[f.Check] = true
	}
	out := make([]domain.CheckID, 0, len(seen))
	for _, id := range domain.AllChecks {
		if seen[id] {
			out = append(out, id)
		}
	}
	return out
}
