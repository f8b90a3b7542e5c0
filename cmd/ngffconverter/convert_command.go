package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ngffconverter/internal/config"
	"ngffconverter/internal/converter"
	"ngffconverter/internal/logging"
	"ngffconverter/internal/notifications"
	"ngffconverter/internal/preflight"
	"ngffconverter/internal/queue"
	"ngffconverter/internal/runner"
	"ngffconverter/internal/workflow"
)

type convertOptions struct {
	format         string
	outputDir      string
	workingDir     string
	overwrite      bool
	dryRun         bool
	skipSpaceCheck bool
	ngffParams     []string
	tiffParams     []string
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert image files to OME-NGFF or OME-TIFF",
		Long: `Convert each input file through the converter chain for the target format.

OME-NGFF runs bioformats2raw; OME-TIFF runs bioformats2raw followed by
raw2ometiff. Intermediates are written to the working directory and the final
result is moved into the output directory. Interrupt with Ctrl+C to stop after
the current conversion is cancelled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runConvert(cmd, ctx, cfg, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (OME-NGFF or OME-TIFF)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&opts.workingDir, "work-dir", "", "Working directory for intermediates (overrides config)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace existing outputs")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the plan and preflight results without converting")
	cmd.Flags().BoolVar(&opts.skipSpaceCheck, "skip-space-check", false, "Skip the free disk space check")
	cmd.Flags().StringArrayVar(&opts.ngffParams, "ngff-param", nil, "Extra bioformats2raw parameter for this run (repeatable)")
	cmd.Flags().StringArrayVar(&opts.tiffParams, "tiff-param", nil, "Extra raw2ometiff parameter for this run (repeatable)")

	return cmd
}

func runConvert(cmd *cobra.Command, ctx *commandContext, loaded *config.Config, opts *convertOptions, args []string) error {
	cfg, err := applyConvertOverrides(loaded, opts)
	if err != nil {
		return err
	}
	format := cfg.Workflow.DefaultFormat

	logger, err := ctx.newRunLogger(cfg)
	if err != nil {
		return err
	}

	registry := newRegistry(cfg, opts, logger)
	workflows, err := buildWorkflows(registry, cfg, format, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	checks := preflight.RunAll(cfg, format)
	checks = append(checks, preflight.CheckCollisions(workflows))
	if cfg.Workflow.SpaceCheck && !opts.skipSpaceCheck {
		checks = append(checks, preflight.CheckDiskSpace(workflows, cfg.Workflow.ExpansionFactor))
	}

	if opts.dryRun {
		if ctx.JSONMode() {
			return writeJSON(cmd, map[string]any{
				"workflows": planRows(workflows),
				"preflight": checks,
			})
		}
		fmt.Fprint(out, renderPlan(workflows))
		printChecks(out, checks)
		return nil
	}

	if failed := preflight.Failed(checks); len(failed) > 0 {
		printChecks(cmd.ErrOrStderr(), failed)
		return fmt.Errorf("preflight failed: %d check(s) did not pass", len(failed))
	}

	lock, err := runner.AcquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release lock failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no run is active"),
			)
		}
	}()

	var recorder runner.Recorder
	store, err := queue.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable; run will not be recorded", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "history command will not show this run"),
		)
	} else {
		defer store.Close()
		recorder = store
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notifications.NewReporter(notifications.NewService(cfg), cfg, logger)
	summary, err := runBatch(runCtx, workflows, recorder, logger, newProgressRenderer(out), notifier)
	if err != nil {
		return err
	}

	if ctx.JSONMode() {
		if err := writeJSON(cmd, map[string]any{
			"summary":   summary,
			"workflows": planRows(workflows),
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, renderResults(workflows, summary))
	}

	switch {
	case summary.Interrupted || summary.Cancelled > 0:
		return context.Canceled
	case summary.Failed > 0:
		return fmt.Errorf("%d of %d workflows failed", summary.Failed, summary.Total)
	}
	return nil
}

// applyConvertOverrides returns a copy of cfg with command line flags applied
// and validated.
func applyConvertOverrides(loaded *config.Config, opts *convertOptions) (*config.Config, error) {
	cfgVal := *loaded
	cfg := &cfgVal

	if strings.TrimSpace(opts.format) != "" {
		format, err := workflow.ParseFormat(opts.format)
		if err != nil {
			return nil, err
		}
		cfg.Workflow.DefaultFormat = string(format)
	}
	if opts.overwrite {
		cfg.Workflow.Overwrite = true
	}
	for _, override := range []struct {
		value  string
		target *string
	}{
		{opts.outputDir, &cfg.Paths.OutputDir},
		{opts.workingDir, &cfg.Paths.WorkingDir},
	} {
		if strings.TrimSpace(override.value) == "" {
			continue
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(override.value))
		if err != nil {
			return nil, err
		}
		*override.target = expanded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRegistry(cfg *config.Config, opts *convertOptions, logger *slog.Logger) *workflow.Registry {
	grace := time.Duration(cfg.Converters.InterruptGraceSeconds) * time.Second
	ngff := converter.NewBioformats2Raw(
		converter.WithBinary(cfg.Converters.Bioformats2Raw),
		converter.WithArgs(cfg.Converters.Bioformats2RawArgs...),
		converter.WithGracePeriod(grace),
		converter.WithLogger(logger),
	)
	tiff := converter.NewRaw2OmeTiff(
		converter.WithBinary(cfg.Converters.Raw2OmeTiff),
		converter.WithArgs(cfg.Converters.Raw2OmeTiffArgs...),
		converter.WithGracePeriod(grace),
		converter.WithLogger(logger),
	)
	return workflow.NewRegistry(
		workflow.Converters{NGFF: ngff, TIFF: tiff},
		workflow.WithParams(workflow.KindConvertNGFF, opts.ngffParams...),
		workflow.WithParams(workflow.KindConvertTIFF, opts.tiffParams...),
		workflow.WithOverwrite(cfg.Workflow.Overwrite),
		workflow.WithLogger(logger),
	)
}

func buildWorkflows(registry *workflow.Registry, cfg *config.Config, format string, inputs []string) ([]*workflow.Workflow, error) {
	workflows := make([]*workflow.Workflow, 0, len(inputs))
	for _, arg := range inputs {
		input, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		w, err := registry.New(format, input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		w.CalculateIO(input, cfg.Paths.OutputDir, cfg.Paths.WorkingDir)
		workflows = append(workflows, w)
	}
	return workflows, nil
}

// runBatch runs the workflows on a background goroutine and renders snapshots
// on the calling goroutine until the pass ends. Extra reporters receive every
// snapshot on the runner goroutine.
func runBatch(ctx context.Context, workflows []*workflow.Workflow, recorder runner.Recorder, logger *slog.Logger, renderer progressRenderer, extra ...runner.Reporter) (runner.Summary, error) {
	reporter := runner.NewChannelReporter(64)
	fanout := append(runner.MultiReporter{reporter}, extra...)
	opts := []runner.Option{runner.WithReporter(fanout), runner.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, runner.WithRecorder(recorder))
	}
	r := runner.New(opts...)

	type result struct {
		summary runner.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := r.Run(ctx, workflows)
		reporter.Close()
		done <- result{summary: summary, err: err}
	}()

	for snap := range reporter.Events() {
		renderer.Handle(snap)
	}
	renderer.Finish()

	res := <-done
	if res.err != nil && !errors.Is(res.err, context.Canceled) {
		return res.summary, res.err
	}
	return res.summary, nil
}

type planRow struct {
	ID          string `json:"id"`
	Input       string `json:"input"`
	Format      string `json:"format"`
	FinalOutput string `json:"final_output"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Stages      int    `json:"stages"`
}

func planRows(workflows []*workflow.Workflow) []planRow {
	rows := make([]planRow, 0, len(workflows))
	for _, w := range workflows {
		rows = append(rows, planRow{
			ID:          w.ID(),
			Input:       w.Input(),
			Format:      string(w.Format()),
			FinalOutput: w.FinalOutput(),
			Status:      string(w.Status()),
			Message:     w.Message(),
			Stages:      w.StageCount(),
		})
	}
	return rows
}

func renderPlan(workflows []*workflow.Workflow) string {
	rows := make([][]string, 0, len(workflows))
	for _, w := range workflows {
		stages := make([]string, 0, w.StageCount())
		for _, task := range w.Tasks() {
			stages = append(stages, task.Name())
		}
		rows = append(rows, []string{
			filepath.Base(w.Input()),
			strings.Join(stages, " > "),
			w.FinalOutput(),
			w.Status().Label(),
		})
	}
	return renderTable([]string{"Input", "Stages", "Output", "Status"}, rows, nil)
}

func renderResults(workflows []*workflow.Workflow, summary runner.Summary) string {
	rows := make([][]string, 0, len(workflows))
	for _, w := range workflows {
		detail := w.FinalOutput()
		if w.Status() != workflow.StatusCompleted && w.Message() != "" {
			detail = w.Message()
		}
		elapsed := ""
		if !w.StartedAt().IsZero() && !w.FinishedAt().IsZero() {
			elapsed = w.FinishedAt().Sub(w.StartedAt()).Round(time.Second).String()
		}
		rows = append(rows, []string{filepath.Base(w.Input()), w.Status().Label(), elapsed, detail})
	}
	footer := fmt.Sprintf("%d succeeded, %d failed, %d cancelled, %d skipped",
		summary.Succeeded, summary.Failed, summary.Cancelled, summary.Skipped)
	return renderTable(
		[]string{"Input", "Status", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		"", footer,
	)
}

func printChecks(out io.Writer, results []preflight.Result) {
	colorize := isTerminal(out)
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
}
