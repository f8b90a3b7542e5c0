package runner

import (
	"time"

	"ngffconverter/internal/workflow"
)

// EventType identifies the transition a Snapshot describes.
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventWorkflowStarted   EventType = "workflow_started"
	EventStageStarted      EventType = "stage_started"
	EventStageProgress     EventType = "stage_progress"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowFailed    EventType = "workflow_failed"
	EventWorkflowCancelled EventType = "workflow_cancelled"
	EventQueueProgress     EventType = "queue_progress"
	EventRunCompleted      EventType = "run_completed"
)

// Snapshot is an immutable view of runner state at one event. Workflow
// fields are empty for run-level events.
type Snapshot struct {
	Type  EventType
	RunID string
	Time  time.Time

	WorkflowID    string
	WorkflowIndex int // 1-based position among workflows attempted in this pass
	Input         string
	FinalOutput   string
	Format        workflow.Format
	Status        workflow.Status
	Message       string

	Stage         string
	StageIndex    int // 1-based
	StageCount    int
	StageFraction float64

	Summary Summary
}

// Summary aggregates the outcome of a pass. Total counts the workflows that
// were eligible when the pass started.
type Summary struct {
	Total     int
	Done      int
	Succeeded int
	Failed    int
	Cancelled int
	Skipped   int
	// Interrupted is set when cancellation prevented workflows from starting.
	Interrupted bool
}

// Fraction returns Done/Total, or 1 for an empty pass.
func (s Summary) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Done) / float64(s.Total)
}

func snapshotOf(eventType EventType, runID string, index int, w *workflow.Workflow, summary Summary) Snapshot {
	snap := Snapshot{
		Type:          eventType,
		RunID:         runID,
		Time:          time.Now().UTC(),
		WorkflowIndex: index,
		Summary:       summary,
	}
	if w == nil {
		return snap
	}
	snap.WorkflowID = w.ID()
	snap.Input = w.Input()
	snap.FinalOutput = w.FinalOutput()
	snap.Format = w.Format()
	snap.Status = w.Status()
	snap.Message = w.Message()
	snap.StageCount = w.StageCount()
	return snap
}
