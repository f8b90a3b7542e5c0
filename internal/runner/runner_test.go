package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ngffconverter/internal/converter"
	"ngffconverter/internal/queue"
	"ngffconverter/internal/runner"
	"ngffconverter/internal/services"
	"ngffconverter/internal/testsupport"
	"ngffconverter/internal/workflow"
)

type eventLog struct {
	mu     sync.Mutex
	events []runner.Snapshot
}

func (l *eventLog) Report(s runner.Snapshot) {
	l.mu.Lock()
	l.events = append(l.events, s)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t runner.EventType) []runner.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []runner.Snapshot
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	dir        string
	outputDir  string
	workingDir string
	// hooks run inside the NGFF converter keyed by input base name.
	hooks map[string]func(ctx context.Context) (int, error)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		outputDir:  filepath.Join(dir, "out"),
		workingDir: filepath.Join(dir, "work"),
		hooks:      make(map[string]func(ctx context.Context) (int, error)),
	}
	for _, d := range []string{f.outputDir, f.workingDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) ngff() converter.Func {
	return func(ctx context.Context, input, output string, _ []string, listener converter.ProgressListener) (int, error) {
		if hook, ok := f.hooks[filepath.Base(input)]; ok {
			if code, err := hook(ctx); code != 0 || err != nil {
				return code, err
			}
		}
		listener.Start(1, 1)
		listener.ChunkEnd(0)
		if err := os.MkdirAll(output, 0o755); err != nil {
			return 1, err
		}
		return 0, os.WriteFile(filepath.Join(output, ".zgroup"), []byte("{}"), 0o644)
	}
}

func (f *fixture) workflows(t *testing.T, names ...string) []*workflow.Workflow {
	t.Helper()
	registry := workflow.NewRegistry(workflow.Converters{NGFF: f.ngff()})
	out := make([]*workflow.Workflow, 0, len(names))
	for _, name := range names {
		input := filepath.Join(f.dir, name)
		if err := os.WriteFile(input, []byte("czi"), 0o644); err != nil {
			t.Fatal(err)
		}
		w, err := registry.New("OME-NGFF", input)
		if err != nil {
			t.Fatal(err)
		}
		w.CalculateIO(input, f.outputDir, f.workingDir)
		out = append(out, w)
	}
	return out
}

func TestRunIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.hooks["b.czi"] = func(context.Context) (int, error) { return 1, nil }
	workflows := f.workflows(t, "a.czi", "b.czi", "c.czi")
	events := &eventLog{}

	summary, err := runner.New(runner.WithReporter(events)).Run(context.Background(), workflows)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []workflow.Status{workflow.StatusCompleted, workflow.StatusFailed, workflow.StatusCompleted}
	for i, status := range want {
		if workflows[i].Status() != status {
			t.Fatalf("workflow %d status = %s want %s", i, workflows[i].Status(), status)
		}
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || summary.Done != 3 || summary.Total != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	progress := events.ofType(runner.EventQueueProgress)
	if len(progress) != 3 {
		t.Fatalf("expected queue progress after every workflow, got %d", len(progress))
	}
	for i, snap := range progress {
		if snap.Summary.Done != i+1 || snap.Summary.Total != 3 {
			t.Fatalf("progress %d = %d/%d", i, snap.Summary.Done, snap.Summary.Total)
		}
	}
	completed := events.ofType(runner.EventRunCompleted)
	if len(completed) != 1 || completed[0].Summary.Succeeded != 2 {
		t.Fatalf("expected a single run completed event with 2 successes, got %+v", completed)
	}
	if len(events.ofType(runner.EventWorkflowFailed)) != 1 {
		t.Fatal("expected one workflow failed event")
	}
	starts := events.ofType(runner.EventWorkflowStarted)
	if len(starts) != 3 || starts[1].WorkflowIndex != 2 || starts[1].Status != workflow.StatusRunning {
		t.Fatalf("unexpected workflow start events: %+v", starts)
	}
}

func TestRunStopsStartingWorkAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.hooks["b.czi"] = func(context.Context) (int, error) {
		cancel()
		return 0, nil
	}
	workflows := f.workflows(t, "a.czi", "b.czi", "c.czi")
	events := &eventLog{}

	summary, err := runner.New(runner.WithReporter(events)).Run(ctx, workflows)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if workflows[1].Status() != workflow.StatusCompleted {
		t.Fatalf("in-flight workflow should finish, got %s", workflows[1].Status())
	}
	if workflows[2].Status() != workflow.StatusPending {
		t.Fatalf("expected third workflow left PENDING, got %s", workflows[2].Status())
	}
	if !summary.Interrupted || summary.Skipped != 1 || summary.Succeeded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(events.ofType(runner.EventRunCompleted)) != 1 {
		t.Fatal("expected exactly one run completed event")
	}
}

func TestRunReportsCancellationSeparately(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.hooks["a.czi"] = func(ctx context.Context) (int, error) {
		cancel()
		return -1, services.Wrap(services.ErrCancelled, "bioformats2raw", "convert", "interrupted", ctx.Err())
	}
	workflows := f.workflows(t, "a.czi", "b.czi")
	events := &eventLog{}

	summary, _ := runner.New(runner.WithReporter(events)).Run(ctx, workflows)

	if workflows[0].Status() != workflow.StatusFailed {
		t.Fatalf("expected interrupted workflow FAILED, got %s", workflows[0].Status())
	}
	if summary.Cancelled != 1 || summary.Failed != 0 {
		t.Fatalf("cancellation should not count as failure: %+v", summary)
	}
	if len(events.ofType(runner.EventWorkflowCancelled)) != 1 || len(events.ofType(runner.EventWorkflowFailed)) != 0 {
		t.Fatal("expected a cancelled event and no failed event")
	}
	if workflows[1].Status() != workflow.StatusPending {
		t.Fatalf("expected second workflow untouched, got %s", workflows[1].Status())
	}
}

func TestRunSkipsFinishedWorkflows(t *testing.T) {
	f := newFixture(t)
	f.hooks["b.czi"] = func(context.Context) (int, error) { return 1, nil }
	workflows := f.workflows(t, "a.czi", "b.czi")
	r := runner.New()
	if _, err := r.Run(context.Background(), workflows); err != nil {
		t.Fatal(err)
	}

	calls := 0
	f.hooks["a.czi"] = func(context.Context) (int, error) { calls++; return 0, nil }
	f.hooks["b.czi"] = func(context.Context) (int, error) { calls++; return 0, nil }
	summary, err := r.Run(context.Background(), workflows)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 0 || summary.Total != 0 {
		t.Fatalf("finished workflows must be skipped, calls=%d summary=%+v", calls, summary)
	}
	if summary.Fraction() != 1 {
		t.Fatalf("empty pass fraction = %v", summary.Fraction())
	}

	workflows[1].Reset()
	summary, err = r.Run(context.Background(), workflows)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || summary.Succeeded != 1 || workflows[1].Status() != workflow.StatusCompleted {
		t.Fatalf("reset workflow should run again, calls=%d summary=%+v", calls, summary)
	}
}

func TestRunRejectsConcurrentPass(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.hooks["a.czi"] = func(context.Context) (int, error) {
		close(entered)
		<-release
		return 0, nil
	}
	workflows := f.workflows(t, "a.czi")
	r := runner.New()

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), workflows)
		done <- err
	}()
	<-entered
	if !r.Running() {
		t.Fatal("expected runner to report running")
	}
	if _, err := r.Run(context.Background(), nil); !errors.Is(err, runner.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first pass failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first pass did not finish")
	}
	if r.Running() {
		t.Fatal("runner should be idle after the pass")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.hooks["b.czi"] = func(context.Context) (int, error) { return 2, nil }
	workflows := f.workflows(t, "a.czi", "b.czi")
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := runner.New(runner.WithRecorder(store)).Run(context.Background(), workflows); err != nil {
		t.Fatal(err)
	}
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats[queue.OutcomeCompleted] != 1 || stats[queue.OutcomeFailed] != 1 {
		t.Fatalf("unexpected history stats: %v", stats)
	}
	entries, err := store.List(context.Background(), 0, queue.OutcomeFailed)
	if err != nil || len(entries) != 1 {
		t.Fatalf("List: %d entries, %v", len(entries), err)
	}
	if entries[0].WorkflowID != workflows[1].ID() || entries[0].Message == "" {
		t.Fatalf("unexpected failed entry: %#v", entries[0])
	}
}

type panickyReporter struct {
	eventLog
	once sync.Once
}

func (p *panickyReporter) Report(s runner.Snapshot) {
	p.eventLog.Report(s)
	if s.Type == runner.EventWorkflowStarted {
		p.once.Do(func() { panic("render crashed") })
	}
}

func TestRunCompletedFiresOnPanic(t *testing.T) {
	f := newFixture(t)
	workflows := f.workflows(t, "a.czi")
	reporter := &panickyReporter{}
	r := runner.New(runner.WithReporter(reporter))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = r.Run(context.Background(), workflows)
	}()
	if got := len(reporter.ofType(runner.EventRunCompleted)); got != 1 {
		t.Fatalf("expected run completed once, got %d", got)
	}
	if r.Running() {
		t.Fatal("runner must be released after a panic")
	}
}

func TestStageEventsCarryPosition(t *testing.T) {
	f := newFixture(t)
	workflows := f.workflows(t, "a.czi")
	events := &eventLog{}
	if _, err := runner.New(runner.WithReporter(events)).Run(context.Background(), workflows); err != nil {
		t.Fatal(err)
	}
	stages := events.ofType(runner.EventStageStarted)
	if len(stages) != 2 {
		t.Fatalf("expected 2 stage starts, got %d", len(stages))
	}
	for i, snap := range stages {
		if snap.StageIndex != i+1 || snap.StageCount != 2 {
			t.Fatalf("stage %d reported as %d of %d", i, snap.StageIndex, snap.StageCount)
		}
	}
	if stages[0].Stage != "Convert to NGFF" || stages[1].Stage != "Save output" {
		t.Fatalf("unexpected stage names: %q %q", stages[0].Stage, stages[1].Stage)
	}
	progress := events.ofType(runner.EventStageProgress)
	if len(progress) == 0 || progress[len(progress)-1].StageFraction != 1 {
		t.Fatal("expected stage progress to reach 1")
	}
	for _, snap := range events.events {
		if snap.RunID == "" {
			t.Fatalf("snapshot %s missing run id", snap.Type)
		}
	}
}
