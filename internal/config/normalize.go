package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConverters()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkingDir) == "" {
		c.Paths.WorkingDir = defaultWorkingDir
	}
	if c.Paths.WorkingDir, err = expandPath(strings.TrimSpace(c.Paths.WorkingDir)); err != nil {
		return fmt.Errorf("paths.working_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConverters() {
	if value, ok := os.LookupEnv("NGFF_BIOFORMATS2RAW"); ok && strings.TrimSpace(value) != "" {
		c.Converters.Bioformats2Raw = value
	}
	if value, ok := os.LookupEnv("NGFF_RAW2OMETIFF"); ok && strings.TrimSpace(value) != "" {
		c.Converters.Raw2OmeTiff = value
	}
	c.Converters.Bioformats2Raw = strings.TrimSpace(c.Converters.Bioformats2Raw)
	if c.Converters.Bioformats2Raw == "" {
		c.Converters.Bioformats2Raw = defaultBioformats2Raw
	}
	c.Converters.Raw2OmeTiff = strings.TrimSpace(c.Converters.Raw2OmeTiff)
	if c.Converters.Raw2OmeTiff == "" {
		c.Converters.Raw2OmeTiff = defaultRaw2OmeTiff
	}
	c.Converters.Bioformats2RawArgs = trimArgs(c.Converters.Bioformats2RawArgs)
	c.Converters.Raw2OmeTiffArgs = trimArgs(c.Converters.Raw2OmeTiffArgs)
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.DefaultFormat = strings.ToUpper(strings.TrimSpace(c.Workflow.DefaultFormat))
	if c.Workflow.DefaultFormat == "" {
		c.Workflow.DefaultFormat = defaultFormat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
