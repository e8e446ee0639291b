package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pagegate/internal/domain"
)

const sitePage = `<!DOCTYPE html>
<html>
<head><title>猫咪</title><link rel="stylesheet" href="style.css"></head>
<body><h1>猫咪</h1><p>猫一天大约要睡十二到十六个小时。</p></body>
</html>
`

func newSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), sitePage)
	writeFile(t, filepath.Join(root, "style.css"), "body{}")
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_Check_AllPassed(t *testing.T) {
	root := newSite(t)

	code, out, errOut := runCLI(t, "check", root)
	assert.Equal(t, 0, code, "stderr=%s", errOut)
	assert.Contains(t, out, "✅")
	assert.NotContains(t, out, "❌")
	assert.Contains(t, out, "全部检查通过")
}

func TestCLI_Check_EntryMissing(t *testing.T) {
	root := t.TempDir()

	code, out, _ := runCLI(t, "check", root)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "❌ 入口文件缺失：index.html")
	assert.Contains(t, out, domain.Remediation(domain.CheckExists))
	// 只给出失败检查项的修复建议。
	assert.NotContains(t, out, domain.Remediation(domain.CheckStyles))
}

func TestCLI_Check_JSONFormat(t *testing.T) {
	root := newSite(t)
	writeFile(t, filepath.Join(root, "broken.html"), `<!DOCTYPE html><html><body><div><div><p>这里的文字已经足够长了。</p></div></body></html>`)

	code, out, _ := runCLI(t, "check", root, "--format", "json")
	assert.Equal(t, 1, code)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &rr), "stdout 必须是单个 RunReport JSON：%q", out)
	assert.Equal(t, []string{"index.html", "broken.html"}, rr.Files)
	assert.Positive(t, rr.Summary.Failed)
	assert.NotContains(t, out, "✅")
}

func TestCLI_Check_NoDiscover(t *testing.T) {
	root := newSite(t)
	writeFile(t, filepath.Join(root, "broken.html"), "<div>")

	code, _, _ := runCLI(t, "check", root, "--no-discover")
	assert.Equal(t, 0, code)
}

func TestCLI_Check_CustomEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "home.html"), sitePage)
	writeFile(t, filepath.Join(root, "style.css"), "body{}")

	code, _, _ := runCLI(t, "check", root, "--entry", "home.html")
	assert.Equal(t, 0, code)
}

func TestCLI_Check_ReportFile(t *testing.T) {
	root := newSite(t)
	report := filepath.Join(t.TempDir(), "report.json")

	code, _, _ := runCLI(t, "check", root, "--report", report)
	require.Equal(t, 0, code)

	b, err := os.ReadFile(report)
	require.NoError(t, err)
	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(b, &rr))
	assert.Equal(t, "index.html", rr.Entry)
	assert.Zero(t, rr.Summary.Failed)
}

func TestCLI_Check_ReportPathIsDirectory(t *testing.T) {
	root := newSite(t)
	dir := t.TempDir()

	code, _, errOut := runCLI(t, "check", root, "--report", dir)
	assert.Equal(t, 1, code, "报告写入失败时退出码为 1")
	assert.Contains(t, errOut, "--report 必须指向普通文件")
}

func TestCLI_Check_ConfigFromRoot(t *testing.T) {
	root := newSite(t)
	// 只启用 exists/size，样式缺失也不会失败。
	writeFile(t, filepath.Join(root, "index.html"), "<p>这个页面没有样式，但足够长，超过五十个字节。</p>")
	writeFile(t, filepath.Join(root, "pagegate.yaml"), "checks: [size]\n")

	code, out, errOut := runCLI(t, "check", root)
	assert.Equal(t, 0, code, "stdout=%s stderr=%s", out, errOut)
}

func TestCLI_Check_ConfigErrors(t *testing.T) {
	root := newSite(t)

	code, _, errOut := runCLI(t, "check", root, "--config", filepath.Join(root, "nope.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "config_not_found")

	writeFile(t, filepath.Join(root, "pagegate.yaml"), "checks: [spelling]\n")
	code, _, errOut = runCLI(t, "check", root)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "config_unknown_check")
}

func TestCLI_UsageErrors(t *testing.T) {
	root := newSite(t)

	code, _, errOut := runCLI(t, "check", root, "--format", "xml")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--format")

	code, _, _ = runCLI(t, "check", root, root)
	assert.Equal(t, 2, code, "最多一个 path")

	code, _, _ = runCLI(t, "check", "--bogus")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
}

func TestCLI_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "pagegate "+version+"\n", out)
}

func TestCLI_Verbose_LogsToStderr(t *testing.T) {
	root := newSite(t)

	code, out, errOut := runCLI(t, "check", root, "-v", "--format", "json")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "check done")
	assert.NotContains(t, out, "check done", "日志不能进入 stdout")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
