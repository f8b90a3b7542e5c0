package workflow

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a Workflow.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	// StatusWarning means the final output already exists and overwrite is off.
	StatusWarning Status = "WARNING"
)

// TaskStatus represents the lifecycle of a single Task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	// TaskError marks a configuration problem found before the task ran.
	TaskError TaskStatus = "ERROR"
)

var titleCaser = cases.Title(language.Und)

// Label returns a display form such as "Completed".
func (s Status) Label() string {
	return titleCaser.String(strings.ToLower(string(s)))
}

// Label returns a display form such as "Running".
func (s TaskStatus) Label() string {
	return titleCaser.String(strings.ToLower(string(s)))
}

// Terminal reports whether the task reached an end state that only Reset leaves.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskError
}

// Kind identifies the variant of a Task.
type Kind int

const (
	KindConvertNGFF Kind = iota
	KindConvertTIFF
	KindFinalize
)

// String returns the stable stage label used in logs and the CLI.
func (k Kind) String() string {
	switch k {
	case KindConvertNGFF:
		return "Convert to NGFF"
	case KindConvertTIFF:
		return "Convert to TIFF"
	case KindFinalize:
		return "Save output"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Format names a supported output format.
type Format string

const (
	FormatNGFF Format = "OME-NGFF"
	FormatTIFF Format = "OME-TIFF"
)

// Formats returns the supported formats in display order.
func Formats() []Format {
	return []Format{FormatNGFF, FormatTIFF}
}

// ParseFormat maps user input onto a supported Format. Matching ignores case
// and accepts the short forms "ngff", "zarr", "tiff" and "tif".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ome-ngff", "ngff", "zarr", "ome-zarr":
		return FormatNGFF, nil
	case "ome-tiff", "tiff", "tif", "ome-tif":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected %s or %s)", value, FormatNGFF, FormatTIFF)
	}
}
