package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ngffconverter/internal/queue"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished conversions",
	}
	list := newHistoryListCommand(ctx)
	historyCmd.RunE = list.RunE
	historyCmd.Flags().AddFlagSet(list.Flags())

	historyCmd.AddCommand(list)
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var outcomeFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent conversions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes := make([]queue.Outcome, 0, len(outcomeFlags))
			for _, value := range outcomeFlags {
				outcome, ok := queue.ParseOutcome(value)
				if !ok {
					return fmt.Errorf("unknown outcome %q (use completed, failed or cancelled)", value)
				}
				outcomes = append(outcomes, outcome)
			}

			return ctx.withHistory(func(store *queue.Store) error {
				entries, err := store.List(cmd.Context(), limit, outcomes...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if entries == nil {
						entries = []*queue.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				fmt.Fprint(out, renderHistory(entries, time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().StringSliceVar(&outcomeFlags, "outcome", nil, "Only show these outcomes (completed, failed, cancelled)")
	return cmd
}

func renderHistory(entries []*queue.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.FinalOutput
		if entry.Outcome != queue.OutcomeCompleted && strings.TrimSpace(entry.Message) != "" {
			detail = entry.Message
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			humanize.RelTime(entry.FinishedAt, now, "ago", "from now"),
			filepath.Base(entry.InputPath),
			entry.Format,
			string(entry.Outcome),
			entry.Duration().Round(time.Second).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Finished", "Input", "Format", "Outcome", "Duration", "Output"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count recorded conversions by outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				rows := make([][]string, 0, 3)
				total := 0
				for _, outcome := range []queue.Outcome{queue.OutcomeCompleted, queue.OutcomeFailed, queue.OutcomeCancelled} {
					count := stats[outcome]
					total += count
					rows = append(rows, []string{string(outcome), humanize.Comma(int64(count))})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Outcome", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
					"total", humanize.Comma(int64(total)),
				))
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all recorded conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history entries\n", removed)
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove conversions finished more than --days ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			cutoff := time.Now().AddDate(0, 0, -days)
			return ctx.withHistory(func(store *queue.Store) error {
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d history entries older than %s\n", removed, humanize.Time(cutoff))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Age threshold in days")
	return cmd
}
