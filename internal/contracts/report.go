package contracts

import "time"

// RunState is the terminal state of a per-company pipeline run
type RunState string

const (
	// RunCompleted: all quarters processed with status ok
	RunCompleted RunState = "COMPLETED"

	// RunPartial: at least one quarter skipped or failed, others succeeded
	RunPartial RunState = "PARTIALLY_COMPLETED"

	// RunFailed: no quarter could be processed
	RunFailed RunState = "FAILED"
)

// QuarterOutcome records what happened to one quarter during a run.
// The collection of these is the machine-readable "what was skipped
// and why" summary a partially completed run must emit.
type QuarterOutcome struct {
	Quarter string `json:"quarter"`
	Stage   Stage  `json:"stage"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
}

// CompanyReport is the result of one company's pipeline run
type CompanyReport struct {
	Company    string           `json:"company"`
	RunID      string           `json:"run_id"`
	State      RunState         `json:"state"`
	Quarters   []QuarterOutcome `json:"quarters"`
	Missing    []MissingPair    `json:"missing_pairs,omitempty"`
	ConfigHash string           `json:"config_hash"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Error      string           `json:"error,omitempty"`
}

// Finalize derives the terminal state from collected outcomes.
// Call once after the last stage; a fatal error recorded via Error
// forces RunFailed.
func (r *CompanyReport) Finalize() {
	if r.Error != "" {
		r.State = RunFailed
		return
	}

	ok, failed := 0, 0
	for _, q := range r.Quarters {
		if q.OK {
			ok++
		} else {
			failed++
		}
	}

	switch {
	case ok > 0 && failed == 0:
		r.State = RunCompleted
	case ok > 0:
		r.State = RunPartial
	default:
		r.State = RunFailed
	}
}

// OKCount returns the number of successfully processed quarters
func (r *CompanyReport) OKCount() int {
	n := 0
	for _, q := range r.Quarters {
		if q.OK {
			n++
		}
	}
	return n
}

// RunReport aggregates company reports for one invocation
type RunReport struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Companies []CompanyReport `json:"companies"`
}

// ExitCode maps the run outcome to a process exit code:
// 0 all companies completed, 2 partial, 1 fatal (nothing succeeded).
func (r *RunReport) ExitCode() int {
	completed, failed := 0, 0
	for _, c := range r.Companies {
		switch c.State {
		case RunCompleted:
			completed++
		case RunFailed:
			failed++
		}
	}

	switch {
	case len(r.Companies) == 0:
		return 1
	case failed == 0 && completed == len(r.Companies):
		return 0
	case completed == 0 && failed == len(r.Companies):
		return 1
	default:
		return 2
	}
}
