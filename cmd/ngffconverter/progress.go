package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"ngffconverter/internal/runner"
)

const barResolution = 1000

// progressRenderer turns runner snapshots into terminal output.
type progressRenderer interface {
	Handle(snap runner.Snapshot)
	Finish()
}

func newProgressRenderer(out io.Writer) progressRenderer {
	if isTerminal(out) {
		return newBarRenderer(out)
	}
	return &lineRenderer{out: out}
}

// overallFraction places the current stage inside the whole batch.
func overallFraction(snap runner.Snapshot) float64 {
	total := snap.Summary.Total
	if total <= 0 {
		return 0
	}
	done := float64(snap.Summary.Done)
	if snap.StageCount > 0 && snap.StageIndex > 0 {
		done += (float64(snap.StageIndex-1) + snap.StageFraction) / float64(snap.StageCount)
	}
	fraction := done / float64(total)
	if fraction > 1 {
		return 1
	}
	return fraction
}

func workflowLabel(snap runner.Snapshot) string {
	return fmt.Sprintf("[%d/%d] %s", snap.WorkflowIndex, snap.Summary.Total, filepath.Base(snap.Input))
}

func outcomeLine(snap runner.Snapshot) (string, bool) {
	switch snap.Type {
	case runner.EventWorkflowCompleted:
		return fmt.Sprintf("%s: completed -> %s", workflowLabel(snap), snap.FinalOutput), true
	case runner.EventWorkflowFailed:
		return fmt.Sprintf("%s: failed: %s", workflowLabel(snap), snap.Message), true
	case runner.EventWorkflowCancelled:
		return fmt.Sprintf("%s: cancelled", workflowLabel(snap)), true
	default:
		return "", false
	}
}

type lineRenderer struct {
	out io.Writer
}

func (r *lineRenderer) Handle(snap runner.Snapshot) {
	switch snap.Type {
	case runner.EventWorkflowStarted:
		fmt.Fprintf(r.out, "%s: converting to %s\n", workflowLabel(snap), snap.Format)
	case runner.EventStageStarted:
		fmt.Fprintf(r.out, "%s: %s (%d/%d)\n", workflowLabel(snap), snap.Stage, snap.StageIndex, snap.StageCount)
	case runner.EventRunCompleted:
		if snap.Summary.Interrupted {
			fmt.Fprintf(r.out, "Interrupted: %d workflows not started\n", snap.Summary.Skipped)
		}
	default:
		if line, ok := outcomeLine(snap); ok {
			fmt.Fprintln(r.out, line)
		}
	}
}

func (r *lineRenderer) Finish() {}

type barRenderer struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newBarRenderer(out io.Writer) *barRenderer {
	bar := progressbar.NewOptions(barResolution,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &barRenderer{out: out, bar: bar}
}

func (r *barRenderer) Handle(snap runner.Snapshot) {
	switch snap.Type {
	case runner.EventStageStarted, runner.EventStageProgress:
		r.bar.Describe(fmt.Sprintf("%s %s", workflowLabel(snap), snap.Stage))
		_ = r.bar.Set(int(overallFraction(snap) * barResolution))
	case runner.EventQueueProgress:
		_ = r.bar.Set(int(snap.Summary.Fraction() * barResolution))
	default:
		if line, ok := outcomeLine(snap); ok {
			_ = r.bar.Clear()
			fmt.Fprintln(r.out, line)
		}
	}
}

func (r *barRenderer) Finish() {
	_ = r.bar.Finish()
}
