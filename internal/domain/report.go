package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// RunReport 即一次 ValidationRun：一次进程调用内的全部检查结果。
// 它不落盘；只有 CLI 指定 --report 时才写成 JSON 文件。
type RunReport struct {
	RunID string `json:"run_id"`
	Root  string `json:"root"`
	Entry string `json:"entry"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Files 是本次检查的目标文件集合（相对 Root）；入口文件缺失时为空。
	Files   []string      `json:"files"`
	Summary ReportSummary `json:"summary"`
	Results []CheckResult `json:"results"`
}

type ReportSummary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CheckResult 是单个检查对单个文件的结论，追加后不再修改。
type CheckResult struct {
	Check   CheckID  `json:"check"`
	File    string   `json:"file"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (r CheckResult) Passed() bool { return r.Status == StatusPassed }
func (r CheckResult) Failed() bool { return r.Status == StatusFailed }

// Add 追加一条结果。返回值便于链式使用（run 层不持有全局可变状态）。
func (r *RunReport) Add(res CheckResult) CheckResult {
	if res.Details == nil {
		res.Details = []string{}
	}
	r.Results = append(r.Results, res)
	return res
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 results 计算得出
//
// 与结果顺序无关的字段才在这里规整；results 的顺序就是检查执行顺序，不重排。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Files == nil {
		r.Files = []string{}
	}
	if r.Results == nil {
		r.Results = []CheckResult{}
	}

	var s ReportSummary
	for _, it := range r.Results {
		switch it.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	r.Summary = s
}

// OK 表示所有已执行的检查均通过（skipped 不计入）。
func (r RunReport) OK() bool { return r.Summary.Failed == 0 }

// ExitCode 把结论映射为进程退出码：0 全部通过，1 至少一项失败。
func (r RunReport) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Failures 按执行顺序返回所有失败的结果。
func (r RunReport) Failures() []CheckResult {
	out := make([]CheckResult, 0, r.Summary.Failed)
	for _, it := range r.Results {
		if it.Failed() {
			out = append(out, it)
		}
	}
	return out
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
