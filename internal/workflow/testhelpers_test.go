package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ngffconverter/internal/converter"
)

// stubConverter writes a real output so cleanup and move logic can be
// observed on disk.
type stubConverter struct {
	calls  []string
	params [][]string
	code   int
	err    error
	panic  bool
	dir    bool
}

func (s *stubConverter) Convert(_ context.Context, input, output string, params []string, listener converter.ProgressListener) (int, error) {
	s.calls = append(s.calls, input+" -> "+output)
	s.params = append(s.params, params)
	if s.panic {
		panic("converter crashed")
	}
	if s.err != nil || s.code != 0 {
		return s.code, s.err
	}
	listener.Start(1, 2)
	listener.SeriesStart(0)
	listener.ChunkEnd(0)
	listener.ChunkEnd(1)
	listener.SeriesEnd(0)
	if s.dir {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return 1, err
		}
		return 0, os.WriteFile(filepath.Join(output, ".zgroup"), []byte(`{"zarr_format":2}`), 0o644)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return 1, err
	}
	return 0, os.WriteFile(output, []byte("II*"), 0o644)
}

var errConverterBoom = errors.New("boom")

type testEnv struct {
	input      string
	outputDir  string
	workingDir string
	ngff       *stubConverter
	tiff       *stubConverter
	registry   *Registry
}

func newTestEnv(t *testing.T, opts ...RegistryOption) *testEnv {
	t.Helper()
	base := t.TempDir()
	env := &testEnv{
		input:      filepath.Join(base, "in", "sample.czi"),
		outputDir:  filepath.Join(base, "out"),
		workingDir: filepath.Join(base, "work"),
		ngff:       &stubConverter{dir: true},
		tiff:       &stubConverter{},
	}
	for _, dir := range []string{filepath.Dir(env.input), env.outputDir, env.workingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(env.input, []byte("czi"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.registry = NewRegistry(Converters{NGFF: env.ngff, TIFF: env.tiff}, opts...)
	return env
}

func (e *testEnv) build(t *testing.T, format Format) *Workflow {
	t.Helper()
	w, err := e.registry.New(string(format), e.input)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	w.CalculateIO(e.input, e.outputDir, e.workingDir)
	return w
}

type recordingObserver struct {
	started  []int
	progress map[int][]float64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{progress: make(map[int][]float64)}
}

func (o *recordingObserver) StageStarted(_ *Workflow, stage, _ int) {
	o.started = append(o.started, stage)
}

func (o *recordingObserver) StageProgress(_ *Workflow, stage int, fraction float64) {
	o.progress[stage] = append(o.progress[stage], fraction)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
