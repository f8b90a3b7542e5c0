package runner

import (
	"testing"
)

func TestChannelReporterDropsOnlyProgress(t *testing.T) {
	reporter := NewChannelReporter(1)
	reporter.Report(Snapshot{Type: EventStageProgress, StageFraction: 0.1})
	reporter.Report(Snapshot{Type: EventStageProgress, StageFraction: 0.2})

	got := <-reporter.Events()
	if got.StageFraction != 0.1 {
		t.Fatalf("expected first progress snapshot, got %v", got.StageFraction)
	}

	done := make(chan struct{})
	go func() {
		reporter.Report(Snapshot{Type: EventWorkflowCompleted})
		reporter.Report(Snapshot{Type: EventRunCompleted})
		close(done)
	}()
	if (<-reporter.Events()).Type != EventWorkflowCompleted {
		t.Fatal("expected workflow completed")
	}
	if (<-reporter.Events()).Type != EventRunCompleted {
		t.Fatal("expected run completed")
	}
	<-done

	reporter.Close()
	reporter.Close()
	reporter.Report(Snapshot{Type: EventRunCompleted})
	if _, ok := <-reporter.Events(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestMultiReporterFansOut(t *testing.T) {
	var a, b int
	multi := MultiReporter{
		ReporterFunc(func(Snapshot) { a++ }),
		nil,
		ReporterFunc(func(Snapshot) { b++ }),
	}
	multi.Report(Snapshot{Type: EventRunStarted})
	if a != 1 || b != 1 {
		t.Fatalf("expected both reporters called once, got %d %d", a, b)
	}
}

func TestSummaryFraction(t *testing.T) {
	if (Summary{Total: 4, Done: 1}).Fraction() != 0.25 {
		t.Fatal("unexpected fraction")
	}
}
