package queue

import (
	"strings"
	"time"
)

// Outcome is how a recorded workflow ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// ParseOutcome maps a user-facing filter onto an Outcome.
func ParseOutcome(value string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(value))) {
	case OutcomeCompleted:
		return OutcomeCompleted, true
	case OutcomeFailed:
		return OutcomeFailed, true
	case OutcomeCancelled:
		return OutcomeCancelled, true
	default:
		return "", false
	}
}

// Entry is one finished workflow persisted in SQLite.
type Entry struct {
	ID          int64
	RunID       string
	WorkflowID  string
	InputPath   string
	Format      string
	FinalOutput string
	Outcome     Outcome
	Message     string
	StartedAt   time.Time
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// Duration returns the wall time the workflow ran for, or zero when unknown.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
