package run

import (
	"github.com/John-Robertt/pagegate/internal/config"
	"github.com/John-Robertt/pagegate/internal/domain"
)

// Observer 用于把“检查进度/结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件按执行顺序、在同一个 goroutine 内同步发出。
type Observer interface {
	// OnStart 在 RunAll 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnFilesDiscovered 在目标文件集合确定后调用（入口文件缺失时不会调用）。
	OnFilesDiscovered(files []string)
	// OnCheckDone 在每条 CheckResult 追加后调用（包括 skipped）。
	OnCheckDone(res domain.CheckResult)
	// OnFinish 在 summary 计算完成后调用。
	OnFinish(rr domain.RunReport)
}
