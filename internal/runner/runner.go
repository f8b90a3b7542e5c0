package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ngffconverter/internal/logging"
	"ngffconverter/internal/queue"
	"ngffconverter/internal/services"
	"ngffconverter/internal/workflow"
)

// ErrAlreadyRunning is returned when Run is called while a pass is active.
var ErrAlreadyRunning = errors.New("runner: a pass is already in progress")

// Recorder persists finished workflows. queue.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry *queue.Entry) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets the snapshot sink.
func WithReporter(reporter Reporter) Option {
	return func(r *Runner) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithRecorder sets where finished workflows are recorded.
func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner walks a workflow list sequentially.
type Runner struct {
	reporter Reporter
	recorder Recorder
	logger   *slog.Logger
	running  atomic.Bool
}

// New constructs a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{reporter: NopReporter{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner")
	return r
}

// Running reports whether a pass is in progress.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run executes every workflow that is not already COMPLETED or FAILED, in
// list order. Cancelling ctx stops new workflows from starting; those are
// left in their prior status and counted as skipped. The returned Summary
// matches the one carried by the EventRunCompleted snapshot.
func (r *Runner) Run(ctx context.Context, workflows []*workflow.Workflow) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	summary := Summary{Total: countEligible(workflows)}
	started := time.Now()
	defer func() {
		r.reporter.Report(snapshotOf(EventRunCompleted, runID, 0, nil, summary))
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.Int("succeeded", summary.Succeeded),
			logging.Int("failed", summary.Failed),
			logging.Int("cancelled", summary.Cancelled),
			logging.Int("skipped", summary.Skipped),
			logging.Bool("interrupted", summary.Interrupted),
			logging.Duration("duration", time.Since(started)),
		)
	}()

	r.reporter.Report(snapshotOf(EventRunStarted, runID, 0, nil, summary))
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("workflows", summary.Total),
	)

	index := 0
	for _, w := range workflows {
		if !eligible(w) {
			continue
		}
		if ctx.Err() != nil {
			if !summary.Interrupted {
				logger.Info("run interrupted; remaining workflows skipped",
					logging.String(logging.FieldEventType, "run_interrupted"),
					logging.Int("remaining", summary.Total-summary.Done),
				)
			}
			summary.Interrupted = true
			summary.Skipped++
			continue
		}
		index++
		r.runOne(ctx, runID, index, w, &summary)
	}
	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, runID string, index int, w *workflow.Workflow, summary *Summary) {
	wfCtx := services.WithWorkflowID(ctx, w.ID())
	logger := logging.WithContext(wfCtx, r.logger)

	start := snapshotOf(EventWorkflowStarted, runID, index, w, *summary)
	start.Status = workflow.StatusRunning
	r.reporter.Report(start)
	logger.Info("working on workflow",
		logging.String(logging.FieldEventType, "workflow_queued"),
		logging.Int("position", index),
		logging.Int("of", summary.Total),
		logging.String("input", w.Input()),
	)

	w.Execute(ctx, &observer{runner: r, runID: runID, index: index, summary: summary, sampler: logging.NewProgressSampler(25), logger: logger})

	outcome := r.classify(ctx, w)
	var eventType EventType
	switch outcome {
	case queue.OutcomeCompleted:
		summary.Succeeded++
		eventType = EventWorkflowCompleted
	case queue.OutcomeCancelled:
		summary.Cancelled++
		eventType = EventWorkflowCancelled
		logger.Info("workflow cancelled",
			logging.String(logging.FieldEventType, "workflow_cancelled"),
			logging.String("message", w.Message()),
		)
	default:
		summary.Failed++
		eventType = EventWorkflowFailed
		details := services.Details(w.Err())
		logger.Error("workflow failed",
			logging.String(logging.FieldEventType, "workflow_failed"),
			logging.String("message", w.Message()),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String(logging.FieldErrorHint, details.Hint),
		)
	}
	summary.Done++

	r.record(ctx, runID, w, outcome)
	r.reporter.Report(snapshotOf(eventType, runID, index, w, *summary))
	r.reporter.Report(snapshotOf(EventQueueProgress, runID, index, nil, *summary))
}

// classify treats a failure that happened while ctx was cancelled, or that
// the converter attributed to cancellation, as a cancellation.
func (r *Runner) classify(ctx context.Context, w *workflow.Workflow) queue.Outcome {
	switch w.Status() {
	case workflow.StatusCompleted:
		return queue.OutcomeCompleted
	default:
		if ctx.Err() != nil || errors.Is(w.Err(), services.ErrCancelled) {
			return queue.OutcomeCancelled
		}
		return queue.OutcomeFailed
	}
}

func (r *Runner) record(ctx context.Context, runID string, w *workflow.Workflow, outcome queue.Outcome) {
	if r.recorder == nil {
		return
	}
	entry := &queue.Entry{
		RunID:       runID,
		WorkflowID:  w.ID(),
		InputPath:   w.Input(),
		Format:      string(w.Format()),
		FinalOutput: w.FinalOutput(),
		Outcome:     outcome,
		Message:     w.Message(),
		StartedAt:   w.StartedAt(),
		FinishedAt:  w.FinishedAt(),
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record workflow history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database; run 'ngffconverter history clear' if it is corrupt"),
			logging.String(logging.FieldImpact, "this workflow will be missing from history"),
		)
	}
}

func eligible(w *workflow.Workflow) bool {
	if w == nil {
		return false
	}
	status := w.Status()
	return status != workflow.StatusCompleted && status != workflow.StatusFailed
}

func countEligible(workflows []*workflow.Workflow) int {
	total := 0
	for _, w := range workflows {
		if eligible(w) {
			total++
		}
	}
	return total
}

// observer turns workflow stage callbacks into snapshots.
type observer struct {
	runner  *Runner
	runID   string
	index   int
	summary *Summary
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func (o *observer) StageStarted(w *workflow.Workflow, stage, total int) {
	snap := snapshotOf(EventStageStarted, o.runID, o.index, w, *o.summary)
	o.fillStage(&snap, w, stage, total)
	o.runner.reporter.Report(snap)
	o.sampler.Reset()
}

func (o *observer) StageProgress(w *workflow.Workflow, stage int, fraction float64) {
	snap := snapshotOf(EventStageProgress, o.runID, o.index, w, *o.summary)
	o.fillStage(&snap, w, stage, w.StageCount())
	snap.StageFraction = fraction
	o.runner.reporter.Report(snap)
	if o.sampler.ShouldLog(fraction*100, snap.Stage) {
		o.logger.Debug("stage progress",
			logging.String(logging.FieldStage, snap.Stage),
			logging.Float64(logging.FieldProgress, fraction*100),
		)
	}
}

func (o *observer) fillStage(snap *Snapshot, w *workflow.Workflow, stage, total int) {
	snap.StageIndex = stage + 1
	snap.StageCount = total
	if tasks := w.Tasks(); stage >= 0 && stage < len(tasks) {
		snap.Stage = tasks[stage].Name()
	}
}
