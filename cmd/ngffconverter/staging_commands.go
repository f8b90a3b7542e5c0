package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ngffconverter/internal/logging"
	"ngffconverter/internal/runner"
	"ngffconverter/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean the working directory",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List intermediates left in the working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			workingDir := strings.TrimSpace(cfg.Paths.WorkingDir)
			entries, err := staging.List(workingDir)
			if err != nil {
				return fmt.Errorf("list working directory: %w", err)
			}

			var totalSize int64
			for _, entry := range entries {
				totalSize += entry.Size
			}

			if ctx.JSONMode() {
				if entries == nil {
					entries = []staging.Entry{}
				}
				return writeJSON(cmd, map[string]any{
					"working_dir":      workingDir,
					"entries":          entries,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Working directory is empty")
				return nil
			}

			fmt.Fprintf(out, "Working directory: %s\n\n", workingDir)
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				age := time.Since(entry.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{entry.Name, formatAge(age), humanize.Bytes(uint64(entry.Size))})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Name", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
				fmt.Sprintf("%d entries", len(entries)), "", humanize.Bytes(uint64(totalSize)),
			))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale intermediates",
		Long: `Remove working directory entries older than --max-age.

Intermediates are deleted when a workflow completes; anything older than the
threshold was left behind by a crash or an interrupted run. The default comes
from workflow.stale_staging_hours. Refuses to run while a conversion holds the
working directory lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = time.Duration(cfg.Workflow.StaleStagingHours) * time.Hour
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}

			lock, err := runner.AcquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, err := ctx.newRunLogger(cfg)
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkingDir, maxAge, logging.NewComponentLogger(logger, "staging"))

			if ctx.JSONMode() {
				return writeStagingCleanJSON(cmd, result)
			}
			return printStagingCleanResult(cmd, result)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove entries older than this (default from config)")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanStaleResult) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "No stale intermediates to clean")
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d stale intermediates, %d errors\n", len(result.Removed), len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d stale intermediates\n", len(result.Removed))
	return nil
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"paths":   result.Removed,
		"errors":  errs,
	})
}
