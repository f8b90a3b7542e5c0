package workflow

import (
	"path/filepath"
	"strings"

	"ngffconverter/internal/converter"
)

// compoundExtensions are stripped whole when deriving a base name so that
// "cells.ome.tiff" becomes "cells" rather than "cells.ome".
var compoundExtensions = []string{".ome.tiff", ".ome.tif", ".ome.zarr", ".ome.xml", ".ome.btf"}

// Task is one stage of a Workflow. It is created by the Registry and owned by
// exactly one Workflow for its whole life.
type Task struct {
	kind      Kind
	input     string
	output    string
	baseName  string
	extension string
	status    TaskStatus
	message   string
	err       error
	params    []string
	converter converter.Converter
	owner     *Workflow
	index     int
}

func newTask(kind Kind, conv converter.Converter, params []string) *Task {
	t := &Task{
		kind:      kind,
		status:    TaskPending,
		params:    append([]string(nil), params...),
		converter: conv,
	}
	switch kind {
	case KindConvertNGFF:
		t.extension = ".zarr"
	case KindConvertTIFF:
		t.extension = ".ome.tiff"
	}
	return t
}

// Kind returns the task variant.
func (t *Task) Kind() Kind { return t.kind }

// Name returns the stable human-readable stage label.
func (t *Task) Name() string { return t.kind.String() }

// Input returns the file this task reads.
func (t *Task) Input() string { return t.input }

// Output returns the path this task writes. It is empty until SetOutput runs.
func (t *Task) Output() string { return t.output }

// BaseName returns the input file name without its extension.
func (t *Task) BaseName() string { return t.baseName }

// Extension returns the extension appended to BaseName for converter outputs.
func (t *Task) Extension() string { return t.extension }

// Status returns the current task status.
func (t *Task) Status() TaskStatus { return t.status }

// Message returns the stored failure or validation message, if any.
func (t *Task) Message() string { return t.message }

// Err returns the error behind a FAILED status.
func (t *Task) Err() error { return t.err }

// Params returns a copy of the extra converter parameters.
func (t *Task) Params() []string { return append([]string(nil), t.params...) }

// SetInput records the input path and derives the output base name.
func (t *Task) SetInput(path string) {
	t.input = path
	t.baseName = baseName(path)
}

// SetOutput computes the output path inside baseDir. Converter tasks write
// <base><extension>. The finalize task keeps the input's file name, and with
// an empty baseDir it adopts the input path verbatim.
func (t *Task) SetOutput(baseDir string) {
	if t.kind == KindFinalize {
		if strings.TrimSpace(baseDir) == "" || t.input == "" {
			t.output = t.input
			return
		}
		t.output = filepath.Join(baseDir, filepath.Base(t.input))
		return
	}
	t.output = filepath.Join(baseDir, t.baseName+t.extension)
}

// Reset returns the task to PENDING and clears its message. Paths are kept.
func (t *Task) Reset() {
	t.status = TaskPending
	t.message = ""
	t.err = nil
}

func (t *Task) markError(message string) {
	t.status = TaskError
	t.message = message
}

func (t *Task) isFinal() bool {
	return t.owner != nil && t.index == len(t.owner.tasks)-1
}

func baseName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	lower := strings.ToLower(name)
	for _, ext := range compoundExtensions {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	if ext := filepath.Ext(name); ext != "" && len(name) > len(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
