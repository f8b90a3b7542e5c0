package workflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ngffconverter/internal/logging"
)

// Workflow is an ordered chain of Tasks converting one input file.
type Workflow struct {
	id          string
	format      Format
	tasks       []*Task
	input       string
	finalOutput string
	outputDir   string
	workingDir  string
	stage       int
	overwrite   bool
	status      Status
	message     string
	err         error
	calculated  bool
	createdAt   time.Time
	startedAt   time.Time
	finishedAt  time.Time
	logger      *slog.Logger
}

func newWorkflow(format Format, input string, tasks []*Task, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Workflow{
		id:        uuid.NewString(),
		format:    format,
		tasks:     tasks,
		input:     input,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
		logger:    logger,
	}
	for i, task := range tasks {
		task.owner = w
		task.index = i
	}
	if len(tasks) > 0 && input != "" {
		tasks[0].SetInput(input)
	}
	return w
}

// ID returns the workflow's unique identifier.
func (w *Workflow) ID() string { return w.id }

// Format returns the target output format.
func (w *Workflow) Format() Format { return w.format }

// Input returns the first task's input file.
func (w *Workflow) Input() string { return w.input }

// FinalOutput returns the definitive output path. It equals the last task's
// output once CalculateIO has run.
func (w *Workflow) FinalOutput() string { return w.finalOutput }

// OutputDir returns the directory the last stage writes to.
func (w *Workflow) OutputDir() string { return w.outputDir }

// WorkingDir returns the directory intermediates are written to.
func (w *Workflow) WorkingDir() string { return w.workingDir }

// Status returns the workflow status.
func (w *Workflow) Status() Status { return w.status }

// Message returns the status message, empty when there is nothing to report.
func (w *Workflow) Message() string { return w.message }

// Err returns the error of the task that failed the workflow, if any.
func (w *Workflow) Err() error { return w.err }

// Overwrite reports whether an existing final output may be replaced.
func (w *Workflow) Overwrite() bool { return w.overwrite }

// SetOverwrite changes the overwrite flag. Call CalculateIO again to refresh
// the WARNING status.
func (w *Workflow) SetOverwrite(overwrite bool) { w.overwrite = overwrite }

// Calculated reports whether CalculateIO has run.
func (w *Workflow) Calculated() bool { return w.calculated }

// StageCount returns the number of tasks in the chain.
func (w *Workflow) StageCount() int { return len(w.tasks) }

// StageIndex returns the zero-based position of the execution loop.
func (w *Workflow) StageIndex() int { return w.stage }

// Tasks returns the task chain. The slice is a copy; the tasks are not.
func (w *Workflow) Tasks() []*Task { return append([]*Task(nil), w.tasks...) }

// CreatedAt returns when the workflow was built.
func (w *Workflow) CreatedAt() time.Time { return w.createdAt }

// StartedAt returns when Execute last started, or the zero time.
func (w *Workflow) StartedAt() time.Time { return w.startedAt }

// FinishedAt returns when Execute last finished, or the zero time.
func (w *Workflow) FinishedAt() time.Time { return w.finishedAt }

// CurrentStage returns the task the execution loop is on, or nil when the
// workflow is COMPLETED or the index is out of range.
func (w *Workflow) CurrentStage() *Task {
	return w.stageAt(w.stage)
}

// NextStage returns the task after the current one, or nil at the chain end.
func (w *Workflow) NextStage() *Task {
	return w.stageAt(w.stage + 1)
}

// LastStage returns the task before the current one, or nil at the chain start.
func (w *Workflow) LastStage() *Task {
	return w.stageAt(w.stage - 1)
}

func (w *Workflow) stageAt(index int) *Task {
	if w.status == StatusCompleted || index < 0 || index >= len(w.tasks) {
		return nil
	}
	return w.tasks[index]
}

// Reset returns a workflow to PENDING so it can run again. Paths computed by
// CalculateIO are kept; an output alias recorded by a finalize run is undone.
func (w *Workflow) Reset() {
	if w.calculated {
		w.threadPaths()
	}
	w.status = StatusPending
	w.message = ""
	w.err = nil
	w.stage = 0
	w.startedAt = time.Time{}
	w.finishedAt = time.Time{}
	for _, task := range w.tasks {
		task.Reset()
	}
}

func (w *Workflow) isFinal(index int) bool {
	return index == len(w.tasks)-1
}

// recordFinalOutput is called by a finalize task after a successful move. The
// preceding task's output is aliased to the same path so cleanup skips it.
func (w *Workflow) recordFinalOutput(index int, output string) {
	w.finalOutput = output
	if index > 0 && index-1 < len(w.tasks) {
		w.tasks[index-1].output = output
	}
}
