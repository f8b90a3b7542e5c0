package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"ngffconverter/internal/converter"
	"ngffconverter/internal/fileutil"
	"ngffconverter/internal/logging"
	"ngffconverter/internal/services"
)

// Run executes the task synchronously. Errors never escape: the outcome is
// COMPLETED on success and FAILED otherwise, with the cause kept in Message
// and Err. A task that is not PENDING is left untouched.
func (t *Task) Run(ctx context.Context, listener converter.ProgressListener) {
	if t.status != TaskPending {
		return
	}
	if listener == nil {
		listener = converter.NopListener{}
	}
	logger := t.logger(ctx)
	t.status = TaskRunning
	t.message = ""
	t.err = nil

	err := t.runSafely(ctx, listener)
	if err != nil {
		details := services.Details(err)
		t.status = TaskFailed
		t.message = details.Message
		t.err = err
		logger.Debug("task failed",
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.Error(err),
		)
		return
	}
	t.status = TaskCompleted
	if t.kind == KindFinalize && t.owner != nil {
		t.owner.recordFinalOutput(t.index, t.output)
	}
}

func (t *Task) runSafely(ctx context.Context, listener converter.ProgressListener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExternalTool, t.Name(), "run", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	if t.kind == KindFinalize {
		return t.finalize()
	}
	return t.convert(ctx, listener)
}

func (t *Task) convert(ctx context.Context, listener converter.ProgressListener) error {
	if t.converter == nil {
		return services.Wrap(services.ErrConfiguration, t.Name(), "convert", "no converter configured", nil)
	}
	if fileutil.Exists(t.output) {
		if t.isFinal() && !t.overwrite() {
			return services.Wrap(services.ErrValidation, t.Name(), "convert", "output already exists: "+t.output, nil)
		}
		if err := fileutil.RemoveAll(t.output); err != nil {
			return services.Wrap(services.ErrValidation, t.Name(), "convert", "remove previous output", err)
		}
	}
	code, err := t.converter.Convert(ctx, t.input, t.output, t.params, listener)
	if err != nil {
		return err
	}
	if code != 0 {
		return services.Wrap(services.ErrExternalTool, t.Name(), "convert", fmt.Sprintf("exited with status %d", code), nil)
	}
	if !fileutil.Exists(t.output) {
		return services.Wrap(services.ErrExternalTool, t.Name(), "convert", "converter reported success but wrote no output", nil)
	}
	return nil
}

func (t *Task) finalize() error {
	if t.input == t.output {
		return nil
	}
	if !fileutil.Exists(t.input) {
		return services.Wrap(services.ErrNotFound, t.Name(), "move", "nothing to save: "+t.input, nil)
	}
	if fileutil.Exists(t.output) {
		if !t.overwrite() {
			return services.Wrap(services.ErrValidation, t.Name(), "move", "output already exists: "+t.output, nil)
		}
		if err := fileutil.RemoveAll(t.output); err != nil {
			return services.Wrap(services.ErrValidation, t.Name(), "move", "remove existing output", err)
		}
	}
	if err := fileutil.Move(t.input, t.output); err != nil {
		return services.Wrap(services.ErrTransient, t.Name(), "move", "save output", err)
	}
	return nil
}

func (t *Task) overwrite() bool {
	return t.owner != nil && t.owner.overwrite
}

func (t *Task) logger(ctx context.Context) *slog.Logger {
	var base *slog.Logger
	if t.owner != nil {
		base = t.owner.logger
	}
	return logging.WithContext(ctx, base)
}
