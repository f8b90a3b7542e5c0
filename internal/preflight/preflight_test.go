package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ngffconverter/internal/testsupport"
	"ngffconverter/internal/workflow"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	result := CheckDirectoryAccess("test", "  ")
	if result.Passed || result.Detail != "path not configured" {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestRunAllPassesWithStubbedConverters(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	results := RunAll(cfg, "OME-TIFF")
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestCheckConvertersOptionalTiff(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("bioformats2raw"))
	cfg.Converters.Raw2OmeTiff = "clearly-not-present-raw2ometiff"

	ngff := CheckConverters(cfg, "OME-NGFF")
	if failed := Failed(ngff); len(failed) != 0 {
		t.Fatalf("expected missing tiff converter to be tolerated for NGFF, got %#v", failed)
	}
	if !strings.Contains(ngff[1].Detail, "not needed") {
		t.Fatalf("expected optional detail, got %q", ngff[1].Detail)
	}

	tiff := CheckConverters(cfg, "OME-TIFF")
	failed := Failed(tiff)
	if len(failed) != 1 || failed[0].Name != "raw2ometiff" {
		t.Fatalf("expected raw2ometiff failure, got %#v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(nil, "OME-NGFF"); results != nil {
		t.Fatalf("expected nil results, got %#v", results)
	}
}

type batch struct {
	registry   *workflow.Registry
	outputDir  string
	workingDir string
	base       string
}

func newBatch(t *testing.T) *batch {
	t.Helper()
	base := t.TempDir()
	b := &batch{
		registry:   workflow.NewRegistry(workflow.Converters{}),
		outputDir:  filepath.Join(base, "out"),
		workingDir: filepath.Join(base, "work"),
		base:       base,
	}
	for _, dir := range []string{b.outputDir, b.workingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return b
}

func (b *batch) add(t *testing.T, format, rel string, size int64) *workflow.Workflow {
	t.Helper()
	input := filepath.Join(b.base, "in", rel)
	testsupport.WriteFile(t, input, size)
	w, err := b.registry.New(format, input)
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	w.CalculateIO(input, b.outputDir, b.workingDir)
	return w
}

func TestFindCollisionsSharedBaseName(t *testing.T) {
	b := newBatch(t)
	first := b.add(t, "OME-NGFF", "a/sample.czi", 10)
	second := b.add(t, "OME-NGFF", "b/sample.czi", 10)
	other := b.add(t, "OME-NGFF", "c/other.czi", 10)

	collisions := FindCollisions([]*workflow.Workflow{first, second, other})
	if len(collisions) != 2 {
		t.Fatalf("expected intermediate and final collisions, got %#v", collisions)
	}
	if collisions[0].Path != filepath.Join(b.outputDir, "sample.zarr") {
		t.Fatalf("unexpected first collision path %s", collisions[0].Path)
	}
	if collisions[1].Path != filepath.Join(b.workingDir, "sample.zarr") {
		t.Fatalf("unexpected second collision path %s", collisions[1].Path)
	}
	if len(collisions[1].Inputs) != 2 || collisions[1].Inputs[0] != first.Input() {
		t.Fatalf("unexpected colliding inputs %v", collisions[1].Inputs)
	}

	result := CheckCollisions([]*workflow.Workflow{first, second, other})
	if result.Passed {
		t.Fatal("expected collision check to fail")
	}
	if !strings.Contains(result.Detail, "sample.zarr") {
		t.Fatalf("expected colliding path in detail, got %q", result.Detail)
	}
}

func TestCheckCollisionsNone(t *testing.T) {
	b := newBatch(t)
	one := b.add(t, "OME-TIFF", "one.czi", 10)
	two := b.add(t, "OME-TIFF", "two.czi", 10)
	uncalculated, err := b.registry.New("OME-NGFF", one.Input())
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}

	result := CheckCollisions([]*workflow.Workflow{one, two, uncalculated, nil})
	if !result.Passed {
		t.Fatalf("expected no collisions, got %q", result.Detail)
	}
}

func stubVolumes(t *testing.T, b *batch, workFree, outFree uint64) {
	t.Helper()
	orig := statVolume
	statVolume = func(path string) (volumeInfo, error) {
		if strings.HasPrefix(path, b.outputDir) {
			return volumeInfo{device: 2, available: outFree}, nil
		}
		return volumeInfo{device: 1, available: workFree}, nil
	}
	t.Cleanup(func() { statVolume = orig })
}

func TestEstimateSpaceGroupsByVolume(t *testing.T) {
	b := newBatch(t)
	stubVolumes(t, b, 1<<30, 1<<30)
	ngff := b.add(t, "OME-NGFF", "a.czi", 100)
	tiff := b.add(t, "OME-TIFF", "b.czi", 50)

	volumes, err := EstimateSpace([]*workflow.Workflow{ngff, tiff}, 2)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("expected 2 volumes, got %#v", volumes)
	}
	byDevice := map[uint64]Volume{}
	for _, vol := range volumes {
		byDevice[vol.Device] = vol
	}
	// NGFF: one intermediate; TIFF: two intermediates.
	if got := byDevice[1].Required; got != 200+100+100 {
		t.Fatalf("working volume required = %d, want 400", got)
	}
	if got := byDevice[2].Required; got != 200+100 {
		t.Fatalf("output volume required = %d, want 300", got)
	}
	if byDevice[2].Path != b.outputDir {
		t.Fatalf("expected output volume path %s, got %s", b.outputDir, byDevice[2].Path)
	}
}

func TestEstimateSpaceSameVolumeFinalizeIsFree(t *testing.T) {
	b := newBatch(t)
	orig := statVolume
	statVolume = func(string) (volumeInfo, error) {
		return volumeInfo{device: 7, available: 1 << 30}, nil
	}
	t.Cleanup(func() { statVolume = orig })
	ngff := b.add(t, "OME-NGFF", "a.czi", 100)
	tiff := b.add(t, "OME-TIFF", "b.czi", 50)

	volumes, err := EstimateSpace([]*workflow.Workflow{ngff, tiff}, 2)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(volumes) != 1 {
		t.Fatalf("expected a single volume, got %#v", volumes)
	}
	// Only the conversions write; the final move is a rename.
	if got := volumes[0].Required; got != 200+100+100 {
		t.Fatalf("required = %d, want 400", got)
	}
}

func TestEstimateSpaceSkipsWarningsAndMissingInputs(t *testing.T) {
	b := newBatch(t)
	stubVolumes(t, b, 1<<30, 1<<30)
	warned := b.add(t, "OME-NGFF", "warned.czi", 100)
	testsupport.WriteFile(t, warned.FinalOutput(), 1)
	warned.CalculateIO(warned.Input(), b.outputDir, b.workingDir)
	if warned.Status() != workflow.StatusWarning {
		t.Fatalf("expected WARNING, got %s", warned.Status())
	}
	missing := b.add(t, "OME-NGFF", "missing.czi", 100)
	if err := os.Remove(missing.Input()); err != nil {
		t.Fatalf("remove input: %v", err)
	}

	volumes, err := EstimateSpace([]*workflow.Workflow{warned, missing}, 2)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(volumes) != 0 {
		t.Fatalf("expected no volumes, got %#v", volumes)
	}
	if result := CheckDiskSpace([]*workflow.Workflow{warned}, 2); !result.Passed {
		t.Fatalf("expected pass with nothing to convert, got %q", result.Detail)
	}
}

func TestCheckDiskSpaceInsufficient(t *testing.T) {
	b := newBatch(t)
	stubVolumes(t, b, 1<<30, 10)
	w := b.add(t, "OME-NGFF", "big.czi", 1000)

	result := CheckDiskSpace([]*workflow.Workflow{w}, 1.5)
	if result.Passed {
		t.Fatalf("expected failure, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "short") {
		t.Fatalf("expected shortfall in detail, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "1.5 kB") {
		t.Fatalf("expected humanized size in detail, got %q", result.Detail)
	}
}

func TestStatVolumeRealFilesystem(t *testing.T) {
	dir := t.TempDir()
	info, err := statVolume(filepath.Join(dir, "not", "yet", "created"))
	if err != nil {
		t.Fatalf("stat volume: %v", err)
	}
	if info.available == 0 {
		t.Fatal("expected free space on temp filesystem")
	}
	if got := existingAncestor(filepath.Join(dir, "not", "yet")); got != dir {
		t.Fatalf("existingAncestor = %s, want %s", got, dir)
	}
}
