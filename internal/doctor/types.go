// Package doctor runs environment probes so a failing scan setup can be
// diagnosed before a run.
package doctor

type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warning"
	StatusFail Status = "fail"
)

type CheckResult struct {
	ID       string            `json:"id"`
	Status   Status            `json:"status"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Summary struct {
	Pass    int `json:"pass"`
	Warning int `json:"warning"`
	Fail    int `json:"fail"`
}

// Report is the full probe result. Warnings and Errors repeat the failing
// check messages for callers that only render a summary.
type Report struct {
	Checks   []CheckResult `json:"checks"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
	Summary  Summary       `json:"summary"`
}

// Failed reports whether the probe run should exit nonzero. strict promotes
// warnings to failures.
func (r Report) Failed(strict bool) bool {
	if r.Summary.Fail > 0 {
		return true
	}
	return strict && r.Summary.Warning > 0
}
