package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ngffconverter/internal/services"
)

func TestSetInputDerivesBaseName(t *testing.T) {
	cases := map[string]string{
		"/data/sample.czi":        "sample",
		"/data/cells.ome.tiff":    "cells",
		"/data/cells.OME.TIF":     "cells",
		"/work/plate.ome.zarr":    "plate",
		"/work/sample.zarr":       "sample",
		"/data/companion.ome.xml": "companion",
		"/data/noext":             "noext",
		"/data/archive.tar.gz":    "archive.tar",
	}
	for input, want := range cases {
		task := newTask(KindConvertNGFF, nil, nil)
		task.SetInput(input)
		if task.BaseName() != want {
			t.Fatalf("SetInput(%q) base = %q want %q", input, task.BaseName(), want)
		}
	}
}

func TestSetOutputPerKind(t *testing.T) {
	ngff := newTask(KindConvertNGFF, nil, nil)
	ngff.SetInput("/data/sample.czi")
	ngff.SetOutput("/tmp")
	if ngff.Output() != filepath.Join("/tmp", "sample.zarr") {
		t.Fatalf("unexpected NGFF output %q", ngff.Output())
	}

	tiff := newTask(KindConvertTIFF, nil, nil)
	tiff.SetInput("/tmp/sample.zarr")
	tiff.SetOutput("/tmp")
	if tiff.Output() != filepath.Join("/tmp", "sample.ome.tiff") {
		t.Fatalf("unexpected TIFF output %q", tiff.Output())
	}

	final := newTask(KindFinalize, nil, nil)
	final.SetInput("/tmp/sample.ome.tiff")
	final.SetOutput("/out")
	if final.Output() != filepath.Join("/out", "sample.ome.tiff") {
		t.Fatalf("unexpected finalize output %q", final.Output())
	}
	final.SetOutput("")
	if final.Output() != "/tmp/sample.ome.tiff" {
		t.Fatalf("finalize without base dir should adopt input, got %q", final.Output())
	}
}

func TestOutputEmptyUntilSetOutput(t *testing.T) {
	task := newTask(KindConvertNGFF, nil, nil)
	task.SetInput("/data/sample.czi")
	if task.Output() != "" {
		t.Fatalf("expected empty output before SetOutput, got %q", task.Output())
	}
	if task.Status() != TaskPending {
		t.Fatalf("expected PENDING, got %s", task.Status())
	}
}

func TestTaskRunCapturesConverterFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ngff.code = 2
	w := env.build(t, FormatNGFF)
	task := w.tasks[0]

	task.Run(context.Background(), nil)
	if task.Status() != TaskFailed {
		t.Fatalf("expected FAILED, got %s", task.Status())
	}
	if !strings.Contains(task.Message(), "status 2") {
		t.Fatalf("expected exit code in message, got %q", task.Message())
	}
	if !errors.Is(task.Err(), services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", task.Err())
	}
}

func TestTaskRunCapturesConverterError(t *testing.T) {
	env := newTestEnv(t)
	env.ngff.err = errConverterBoom
	w := env.build(t, FormatNGFF)
	task := w.tasks[0]

	task.Run(context.Background(), nil)
	if task.Status() != TaskFailed || !errors.Is(task.Err(), errConverterBoom) {
		t.Fatalf("expected FAILED with converter error, got %s / %v", task.Status(), task.Err())
	}
}

func TestTaskRunRecoversFromPanic(t *testing.T) {
	env := newTestEnv(t)
	env.ngff.panic = true
	w := env.build(t, FormatNGFF)
	task := w.tasks[0]

	task.Run(context.Background(), nil)
	if task.Status() != TaskFailed {
		t.Fatalf("expected FAILED after panic, got %s", task.Status())
	}
	if !strings.Contains(task.Message(), "converter crashed") {
		t.Fatalf("expected panic value in message, got %q", task.Message())
	}
}

func TestTaskRunWithoutConverterFails(t *testing.T) {
	env := newTestEnv(t)
	registry := NewRegistry(Converters{})
	w, err := registry.New("OME-NGFF", env.input)
	if err != nil {
		t.Fatal(err)
	}
	w.CalculateIO(env.input, env.outputDir, env.workingDir)
	w.tasks[0].Run(context.Background(), nil)
	if !errors.Is(w.tasks[0].Err(), services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", w.tasks[0].Err())
	}
}

func TestTaskRunIgnoresNonPendingTask(t *testing.T) {
	env := newTestEnv(t)
	w := env.build(t, FormatNGFF)
	task := w.tasks[0]
	task.markError("invalid")

	task.Run(context.Background(), nil)
	if task.Status() != TaskError || len(env.ngff.calls) != 0 {
		t.Fatalf("expected untouched ERROR task, got %s with %d calls", task.Status(), len(env.ngff.calls))
	}
	task.Reset()
	if task.Status() != TaskPending || task.Message() != "" {
		t.Fatalf("expected reset to PENDING, got %s %q", task.Status(), task.Message())
	}
}

func TestFinalizeNoOpWhenPathsMatch(t *testing.T) {
	env := newTestEnv(t)
	w := env.build(t, FormatNGFF)
	final := w.tasks[1]
	final.SetInput(env.input)
	final.SetOutput("")

	final.Run(context.Background(), nil)
	if final.Status() != TaskCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", final.Status(), final.Message())
	}
	if !exists(env.input) {
		t.Fatal("no-op finalize must leave the file in place")
	}
	if w.FinalOutput() != env.input {
		t.Fatalf("expected final output recorded as %q, got %q", env.input, w.FinalOutput())
	}
}
