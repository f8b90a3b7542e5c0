package workflow

import (
	"fmt"
	"log/slog"

	"ngffconverter/internal/converter"
	"ngffconverter/internal/logging"
)

// Converters bundles the external tools the task chain delegates to.
type Converters struct {
	NGFF converter.NGFF
	TIFF converter.TIFF
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithParams sets extra converter parameters for every task of kind.
func WithParams(kind Kind, params ...string) RegistryOption {
	return func(r *Registry) {
		r.params[kind] = append([]string(nil), params...)
	}
}

// WithOverwrite sets the default overwrite flag of new workflows.
func WithOverwrite(overwrite bool) RegistryOption {
	return func(r *Registry) {
		r.overwrite = overwrite
	}
}

// WithLogger sets the logger handed to new workflows.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry maps an output format onto a freshly built task chain.
type Registry struct {
	converters Converters
	params     map[Kind][]string
	overwrite  bool
	logger     *slog.Logger
}

// NewRegistry constructs a Registry backed by the given converters.
func NewRegistry(converters Converters, opts ...RegistryOption) *Registry {
	r := &Registry{
		converters: converters,
		params:     make(map[Kind][]string),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "workflow")
	return r
}

// New builds a Workflow converting input to format.
func (r *Registry) New(format, input string) (*Workflow, error) {
	parsed, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	kinds, err := chainFor(parsed)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(kinds))
	for _, kind := range kinds {
		tasks = append(tasks, newTask(kind, r.converterFor(kind), r.params[kind]))
	}
	w := newWorkflow(parsed, input, tasks, r.logger)
	w.overwrite = r.overwrite
	return w, nil
}

// Rebuild replaces w with a new Workflow for the same input in format. The
// overwrite flag carries over and, when w had its paths calculated, the new
// workflow is calculated against the same directories.
func (r *Registry) Rebuild(w *Workflow, format string) (*Workflow, error) {
	if w == nil {
		return nil, fmt.Errorf("rebuild: workflow is nil")
	}
	rebuilt, err := r.New(format, w.Input())
	if err != nil {
		return nil, err
	}
	rebuilt.overwrite = w.overwrite
	if w.calculated {
		rebuilt.CalculateIO(w.input, w.outputDir, w.workingDir)
	}
	return rebuilt, nil
}

func (r *Registry) converterFor(kind Kind) converter.Converter {
	switch kind {
	case KindConvertNGFF:
		if r.converters.NGFF != nil {
			return r.converters.NGFF
		}
	case KindConvertTIFF:
		if r.converters.TIFF != nil {
			return r.converters.TIFF
		}
	}
	return nil
}

func chainFor(format Format) ([]Kind, error) {
	switch format {
	case FormatNGFF:
		return []Kind{KindConvertNGFF, KindFinalize}, nil
	case FormatTIFF:
		return []Kind{KindConvertNGFF, KindConvertTIFF, KindFinalize}, nil
	default:
		return nil, fmt.Errorf("no task chain for format %q", format)
	}
}
