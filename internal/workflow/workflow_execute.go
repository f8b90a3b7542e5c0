package workflow

import (
	"context"
	"fmt"
	"time"

	"ngffconverter/internal/converter"
	"ngffconverter/internal/fileutil"
	"ngffconverter/internal/logging"
	"ngffconverter/internal/services"
)

// Observer receives stage progress while a workflow executes. Calls happen on
// the goroutine running Execute.
type Observer interface {
	StageStarted(w *Workflow, stage, total int)
	StageProgress(w *Workflow, stage int, fraction float64)
}

type nopObserver struct{}

func (nopObserver) StageStarted(*Workflow, int, int)      {}
func (nopObserver) StageProgress(*Workflow, int, float64) {}

// Execute runs the task chain. It panics if CalculateIO has not run.
//
// Tasks are validated first; a task with missing paths, a missing input file
// or an existing final output without overwrite is marked ERROR and the
// workflow FAILED before anything runs. Otherwise tasks run in order and the
// first task that does not complete fails the workflow, leaving later tasks
// PENDING and intermediates in place. When every task completes, non-final
// outputs that differ from FinalOutput are removed; removal problems are
// logged and do not change the COMPLETED status. A COMPLETED workflow is left
// untouched; Reset it to run again.
func (w *Workflow) Execute(ctx context.Context, observer Observer) {
	if !w.calculated {
		panic("workflow: Execute called before CalculateIO")
	}
	if observer == nil {
		observer = nopObserver{}
	}
	ctx = services.WithWorkflowID(ctx, w.id)
	logger := logging.WithContext(ctx, w.logger)

	if w.status == StatusCompleted {
		logger.Warn("workflow already completed",
			logging.String(logging.FieldEventType, "workflow_rerun_refused"),
			logging.String("final_output", w.finalOutput),
			logging.String(logging.FieldErrorHint, "reset the workflow before running it again"),
		)
		return
	}

	w.startedAt = time.Now().UTC()
	w.finishedAt = time.Time{}
	defer func() {
		w.finishedAt = time.Now().UTC()
	}()

	if !w.validate() {
		w.status = StatusFailed
		logger.Warn("workflow validation failed",
			logging.String(logging.FieldEventType, "workflow_invalid"),
			logging.String("reason", w.message),
			logging.String(logging.FieldErrorHint, "fix the paths or enable overwrite, then run again"),
		)
		return
	}

	w.status = StatusRunning
	w.message = ""
	w.err = nil
	total := len(w.tasks)
	logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.String("format", string(w.format)),
		logging.String("input", w.input),
		logging.String("final_output", w.finalOutput),
		logging.Int("stages", total),
	)

	for i, task := range w.tasks {
		w.stage = i
		stageCtx := services.WithStage(ctx, task.Name())
		stageLogger := logging.WithContext(stageCtx, w.logger)
		stageStart := time.Now()
		stageLogger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.Int("stage_index", i+1),
			logging.Int("stage_count", total),
			logging.String("input", task.Input()),
			logging.String("output", task.Output()),
		)
		observer.StageStarted(w, i, total)

		index := i
		tracker := converter.NewTracker(func(fraction float64) {
			observer.StageProgress(w, index, fraction)
		})
		task.Run(stageCtx, tracker)

		if task.Status() != TaskCompleted {
			w.status = StatusFailed
			w.message = fmt.Sprintf("%s failed: %s", task.Name(), task.Message())
			w.err = task.Err()
			details := services.Details(task.Err())
			stageLogger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldErrorKind, string(details.Kind)),
				logging.String(logging.FieldErrorHint, details.Hint),
				logging.String("error_message", task.Message()),
				logging.Duration("stage_duration", time.Since(stageStart)),
			)
			return
		}
		observer.StageProgress(w, i, 1)
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	w.cleanupIntermediates(ctx)
	w.status = StatusCompleted
	logger.Info("workflow completed",
		logging.String(logging.FieldEventType, "workflow_complete"),
		logging.String("final_output", w.finalOutput),
		logging.Duration("duration", time.Since(w.startedAt)),
	)
}

// validate marks the first unrunnable task ERROR and reports whether the
// chain may run.
func (w *Workflow) validate() bool {
	for i, task := range w.tasks {
		if task.Status() != TaskPending {
			w.message = fmt.Sprintf("%s is %s; reset the workflow before running it again", task.Name(), task.Status().Label())
			return false
		}
		var problem string
		switch {
		case task.Input() == "":
			problem = "missing input path"
		case task.Output() == "":
			problem = "missing output path"
		case i == 0 && !fileutil.Exists(task.Input()):
			problem = "input file not found: " + task.Input()
		case w.isFinal(i) && task.Output() != task.Input() && fileutil.Exists(task.Output()) && !w.overwrite:
			problem = "output already exists: " + task.Output()
		}
		if problem != "" {
			task.markError(problem)
			w.message = fmt.Sprintf("%s: %s", task.Name(), problem)
			return false
		}
	}
	return true
}

func (w *Workflow) cleanupIntermediates(ctx context.Context) {
	logger := logging.WithContext(ctx, w.logger)
	for i, task := range w.tasks {
		if w.isFinal(i) {
			continue
		}
		path := task.Output()
		if path == "" || path == w.finalOutput || !fileutil.Exists(path) {
			continue
		}
		if err := fileutil.RemoveAll(path); err != nil {
			logging.WarnWithContext(logger, "intermediate cleanup failed", "cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually or run 'ngffconverter staging clean'"),
				logging.String(logging.FieldImpact, "disk space in the working directory is not reclaimed"),
			)
			continue
		}
		logger.Debug("intermediate removed", logging.String("path", path))
	}
}
