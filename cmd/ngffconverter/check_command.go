package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ngffconverter/internal/config"
	"ngffconverter/internal/notifications"
	"ngffconverter/internal/preflight"
	"ngffconverter/internal/workflow"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories and converter binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format := cfg.Workflow.DefaultFormat
			if strings.TrimSpace(formatFlag) != "" {
				parsed, err := workflow.ParseFormat(formatFlag)
				if err != nil {
					return err
				}
				format = string(parsed)
			}

			results := preflight.RunAll(cfg, format)
			if notify {
				results = append(results, checkNotification(cmd, cfg))
			}
			failed := preflight.Failed(results)

			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{
					"config_path":   ctx.configPath,
					"config_exists": ctx.configExists,
					"format":        format,
					"checks":        results,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				configLine := ctx.configPath
				if !ctx.configExists {
					configLine += " (not found, defaults in use)"
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLine, isTerminal(out)))
				fmt.Fprintln(out, renderStatusLine("Format", statusInfo, format, isTerminal(out)))
				printChecks(out, results)
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Check the converters needed for this format")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func checkNotification(cmd *cobra.Command, cfg *config.Config) preflight.Result {
	const name = "Notifications"
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return preflight.Result{Name: name, Passed: true, Detail: "disabled (no ntfy_topic)"}
	}
	if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	return preflight.Result{Name: name, Passed: true, Detail: "test sent to " + topic}
}
