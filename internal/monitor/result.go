package monitor

import "fmt"

// RunOutcome is the terminal state of one monitoring run.
type RunOutcome string

const (
	RunSuccess RunOutcome = "success" // zero per-game errors
	RunPartial RunOutcome = "partial" // completed with per-game errors
	RunFatal   RunOutcome = "fatal"   // the run itself could not proceed
)

// RunResult aggregates what happened during one monitoring run.
type RunResult struct {
	Outcome      RunOutcome `json:"outcome"`
	GamesChecked int        `json:"games_checked"`
	AlertsSent   int        `json:"alerts_sent"`
	UsedFallback bool       `json:"used_fallback"`
	Errors       []string   `json:"errors,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
}

// AddErrorf records a formatted error message.
func (r *RunResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *RunResult) Summary() string {
	return fmt.Sprintf(
		"outcome=%s games=%d alerts=%d fallback=%t errors=%d",
		r.Outcome, r.GamesChecked, r.AlertsSent, r.UsedFallback, len(r.Errors),
	)
}
