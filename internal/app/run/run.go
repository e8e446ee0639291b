package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/pagegate/internal/config"
	"github.com/John-Robertt/pagegate/internal/domain"
	"github.com/John-Robertt/pagegate/internal/htmlcheck"
	"github.com/John-Robertt/pagegate/internal/scan"
)

// RunAll 执行一次完整检查，并返回本次 ValidationRun。
//
// 流程（固定）：
// 1) 入口文件存在性检查；缺失则只记录这一条失败并返回，其余检查一律不执行
// 2) 确定目标文件集合（扫描完成后才开始检查任何文件）
// 3) 对每个文件按固定顺序执行已启用的检查
//
// 只有读文件/扫描目录这类 I/O 故障会以 error 返回并中止本次运行；检查失败只体现在结果里。
func RunAll(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger) (domain.RunReport, error) {
	return RunAllWithObserver(ctx, eff, log, nil)
}

// RunAllWithObserver 与 RunAll 相同，但允许传入 Observer 以输出每条检查结果（由上层决定如何展示）。
func RunAllWithObserver(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) (domain.RunReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}

	obs.OnStart(eff)

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Root:      eff.Root,
		Entry:     eff.Entry,
		StartedAt: time.Now().UTC(),
		Files:     []string{},
		Results:   make([]domain.CheckResult, 0, 16),
	}
	record := func(res domain.CheckResult) {
		res = rr.Add(res)
		log.Debug("check done",
			zap.String("check", string(res.Check)),
			zap.String("file", res.File),
			zap.String("status", res.Status),
		)
		obs.OnCheckDone(res)
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		obs.OnFinish(rr)
		return rr
	}

	entryAbs := filepath.Join(eff.Root, filepath.FromSlash(eff.Entry))
	if !htmlcheck.FileExists(entryAbs) {
		log.Debug("entry file missing", zap.String("path", entryAbs))
		record(domain.CheckResult{
			Check:   domain.CheckExists,
			File:    eff.Entry,
			Status:  domain.StatusFailed,
			Message: fmt.Sprintf("入口文件缺失：%s（期望位于 %s）", eff.Entry, entryAbs),
		})
		return finish(), nil
	}
	record(passed(domain.CheckExists, eff.Entry, fmt.Sprintf("入口文件 %s 存在", eff.Entry)))

	files, err := targetFiles(eff)
	if err != nil {
		return finish(), fmt.Errorf("扫描 %s 失败：%w", eff.Root, err)
	}
	rr.Files = files
	log.Debug("target files", zap.Int("count", len(files)), zap.Strings("files", files))
	obs.OnFilesDiscovered(files)

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		if err := checkFile(eff, rel, record); err != nil {
			return finish(), err
		}
	}

	return finish(), nil
}

// targetFiles 返回本次要检查的文件（相对 root，'/' 分隔），入口文件总在第一位。
func targetFiles(eff config.EffectiveConfig) ([]string, error) {
	files := []string{eff.Entry}
	if !eff.Discover {
		return files, nil
	}
	found, err := scan.DiscoverHTMLFiles(eff.Root, eff.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		if f == eff.Entry {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// fileCtx 是单个文件在一次检查中的只读上下文。
type fileCtx struct {
	eff     config.EffectiveConfig
	rel     string
	baseDir string
	content string

	styles *htmlcheck.StyleReport
}

func (fc *fileCtx) styleReport() htmlcheck.StyleReport {
	if fc.styles == nil {
		r := htmlcheck.Styles(fc.content, fc.baseDir)
		fc.styles = &r
	}
	return *fc.styles
}

// contentCheck 是一个基于文件内容的检查；表的顺序即固定执行顺序。
type contentCheck struct {
	id  domain.CheckID
	run func(fc *fileCtx) domain.CheckResult
}

var contentChecks = []contentCheck{
	{domain.CheckStructure, checkStructure},
	{domain.CheckTags, checkTags},
	{domain.CheckContent, checkContent},
	{domain.CheckScripts, checkScripts},
	{domain.CheckStyles, checkStyles},
	{domain.CheckCSS, checkCSS},
	{domain.CheckLinks, checkLinks},
	{domain.CheckAssets, checkAssets},
}

func checkFile(eff config.EffectiveConfig, rel string, record func(domain.CheckResult)) error {
	abs := filepath.Join(eff.Root, filepath.FromSlash(rel))

	// 前置条件：文件存在。扫描后被删除的文件，其全部检查都记为不适用。
	size, sizeOK, applicable, err := htmlcheck.NonEmpty(abs, eff.MinSize)
	if err != nil {
		return fmt.Errorf("读取 %s 失败：%w", rel, err)
	}
	if !applicable {
		for _, id := range eff.Checks {
			if id == domain.CheckExists {
				continue
			}
			record(domain.CheckResult{
				Check:   id,
				File:    rel,
				Status:  domain.StatusSkipped,
				Message: fmt.Sprintf("%s 不存在，跳过 %s 检查", rel, id),
			})
		}
		return nil
	}

	if eff.Enabled(domain.CheckSize) {
		if sizeOK {
			record(passed(domain.CheckSize, rel, fmt.Sprintf("%s 大小 %d 字节（> %d）", rel, size, eff.MinSize)))
		} else {
			record(failed(domain.CheckSize, rel, fmt.Sprintf("%s 过小：%d 字节（需要 > %d）", rel, size, eff.MinSize), nil))
		}
	}

	needContent := false
	for _, c := range contentChecks {
		if eff.Enabled(c.id) {
			needContent = true
			break
		}
	}
	if !needContent {
		return nil
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("读取 %s 失败：%w", rel, err)
	}

	baseDir := eff.Root
	if eff.LinkBase == config.LinkBaseFile {
		baseDir = filepath.Dir(abs)
	}
	fc := &fileCtx{eff: eff, rel: rel, baseDir: baseDir, content: string(b)}

	for _, c := range contentChecks {
		if !eff.Enabled(c.id) {
			continue
		}
		record(c.run(fc))
	}
	return nil
}

func checkStructure(fc *fileCtx) domain.CheckResult {
	if htmlcheck.HasBasicStructure(fc.content) {
		return passed(domain.CheckStructure, fc.rel, fmt.Sprintf("%s 包含 HTML 基本结构", fc.rel))
	}
	return failed(domain.CheckStructure, fc.rel, fmt.Sprintf("%s 缺少 <!DOCTYPE html> 或 <html>", fc.rel), nil)
}

func checkTags(fc *fileCtx) domain.CheckResult {
	ms := htmlcheck.BalancedTags(fc.content, fc.eff.Tags)
	if len(ms) == 0 {
		return passed(domain.CheckTags, fc.rel, fmt.Sprintf("%s 标签开闭数量一致", fc.rel))
	}
	details := make([]string, 0, len(ms))
	for _, m := range ms {
		details = append(details, m.String())
	}
	return failed(domain.CheckTags, fc.rel, fmt.Sprintf("%s 有 %d 种标签开闭数量不一致", fc.rel, len(ms)), details)
}

func checkContent(fc *fileCtx) domain.CheckResult {
	if htmlcheck.HasVisibleContent(fc.content, fc.eff.MinTextChars) {
		return passed(domain.CheckContent, fc.rel, fmt.Sprintf("%s 包含可见内容", fc.rel))
	}
	return failed(domain.CheckContent, fc.rel,
		fmt.Sprintf("%s 缺少可见内容（需要标题/段落/div，且文本超过 %d 个非空白字符，实际 %d）",
			fc.rel, fc.eff.MinTextChars, htmlcheck.VisibleTextChars(fc.content)),
		nil)
}

func checkScripts(fc *fileCtx) domain.CheckResult {
	hits := htmlcheck.NoObviousScriptErrors(fc.content)
	if len(hits) == 0 {
		return passed(domain.CheckScripts, fc.rel, fmt.Sprintf("%s 没有未注释的 alert()/console.error()", fc.rel))
	}
	return failed(domain.CheckScripts, fc.rel, fmt.Sprintf("%s 有 %d 处未注释的 alert()/console.error()", fc.rel, len(hits)), hits)
}

func checkStyles(fc *fileCtx) domain.CheckResult {
	if fc.styleReport().HasStyles {
		return passed(domain.CheckStyles, fc.rel, fmt.Sprintf("%s 已引入样式", fc.rel))
	}
	return failed(domain.CheckStyles, fc.rel, fmt.Sprintf("%s 没有任何样式（样式表链接、<style> 或 style 属性）", fc.rel), nil)
}

func checkCSS(fc *fileCtx) domain.CheckResult {
	sr := fc.styleReport()
	if len(sr.Unresolved) == 0 {
		return passed(domain.CheckCSS, fc.rel, fmt.Sprintf("%s 的样式表链接均可解析（%d 个）", fc.rel, len(sr.Stylesheets)))
	}
	return failed(domain.CheckCSS, fc.rel, fmt.Sprintf("%s 有 %d 个样式表链接指向不存在的文件", fc.rel, len(sr.Unresolved)), sr.Unresolved)
}

func checkLinks(fc *fileCtx) domain.CheckResult {
	bad := htmlcheck.LinksResolvable(fc.content, fc.baseDir)
	if len(bad) == 0 {
		return passed(domain.CheckLinks, fc.rel, fmt.Sprintf("%s 的本地链接均可解析", fc.rel))
	}
	return failed(domain.CheckLinks, fc.rel, fmt.Sprintf("%s 有 %d 个链接指向不存在的文件", fc.rel, len(bad)), bad)
}

func checkAssets(fc *fileCtx) domain.CheckResult {
	bad, err := htmlcheck.AssetsResolvable(fc.content, fc.baseDir)
	if err != nil {
		return failed(domain.CheckAssets, fc.rel, fmt.Sprintf("%s 无法解析：%v", fc.rel, err), nil)
	}
	if len(bad) == 0 {
		return passed(domain.CheckAssets, fc.rel, fmt.Sprintf("%s 的图片与脚本均可解析", fc.rel))
	}
	return failed(domain.CheckAssets, fc.rel, fmt.Sprintf("%s 有 %d 个图片/脚本指向不存在的文件", fc.rel, len(bad)), bad)
}

func passed(id domain.CheckID, file, msg string) domain.CheckResult {
	return domain.CheckResult{Check: id, File: file, Status: domain.StatusPassed, Message: msg}
}

func failed(id domain.CheckID, file, msg string, details []string) domain.CheckResult {
	return domain.CheckResult{
		Check:   id,
		File:    file,
		Status:  domain.StatusFailed,
		Message: msg,
		Details: append([]string(nil), details...),
	}
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnFilesDiscovered([]string) {}
func (nopObserver) OnCheckDone(domain.CheckResult) {}
func (nopObserver) OnFinish(domain.RunReport) {}

// Describe 返回某条结果的单行描述（供日志与界面复用）。
func Describe(res domain.CheckResult) string {
	if len(res.Details) == 0 {
		return res.Message
	}
	return res.Message + "：" + strings.Join(res.Details, "；")
}
