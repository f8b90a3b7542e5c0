package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ngffconverter/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var list bool

	cmd := &cobra.Command{
		Use:   "logs [file]",
		Short: "Show run logs",
		Long: `Print the tail of a run log. Without an argument the most recent log in
paths.log_dir is used. A bare file name is resolved against the log directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logDir := strings.TrimSpace(cfg.Paths.LogDir)
			out := cmd.OutOrStdout()

			if list {
				return listRunLogs(cmd, ctx, logDir)
			}

			var path string
			if len(args) == 1 {
				path = args[0]
				if !strings.ContainsRune(path, filepath.Separator) {
					path = filepath.Join(logDir, path)
				}
			} else {
				path, err = logs.Latest(logDir)
				if errors.Is(err, logs.ErrNoLogs) {
					fmt.Fprintln(out, "No run logs yet")
					return nil
				}
				if err != nil {
					return err
				}
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, 0, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().BoolVar(&list, "list", false, "List run logs instead of printing one")

	return cmd
}

func listRunLogs(cmd *cobra.Command, ctx *commandContext, logDir string) error {
	runs, err := logs.List(logDir)
	if err != nil {
		return err
	}

	if ctx.JSONMode() {
		if runs == nil {
			runs = []logs.RunLog{}
		}
		return writeJSON(cmd, runs)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No run logs yet")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			filepath.Base(run.Path),
			humanize.RelTime(run.ModTime, time.Now(), "ago", "from now"),
			humanize.Bytes(uint64(run.Size)),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Log", "Written", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	return nil
}
