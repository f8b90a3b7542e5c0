package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedFormats lists the output formats a workflow can target.
var SupportedFormats = []string{"OME-NGFF", "OME-TIFF"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConverters(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkingDir == "" {
		return errors.New("paths.working_dir must be set")
	}
	if c.Paths.OutputDir != "" && filepath.Clean(c.Paths.OutputDir) == filepath.Clean(c.Paths.WorkingDir) {
		return errors.New("paths.output_dir and paths.working_dir must differ; intermediates are removed from the working directory")
	}
	return nil
}

func (c *Config) validateConverters() error {
	if c.Converters.InterruptGraceSeconds < 0 {
		return errors.New("converters.interrupt_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	known := false
	for _, format := range SupportedFormats {
		if strings.EqualFold(format, c.Workflow.DefaultFormat) {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("workflow.default_format %q is not supported (choose one of %s)",
			c.Workflow.DefaultFormat, strings.Join(SupportedFormats, ", "))
	}
	if c.Workflow.ExpansionFactor <= 0 {
		return errors.New("workflow.expansion_factor must be positive")
	}
	if c.Workflow.StaleStagingHours < 0 {
		return errors.New("workflow.stale_staging_hours must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	if c.Notifications.MinWorkflows < 0 {
		return errors.New("notifications.min_workflows must not be negative")
	}
	return nil
}
