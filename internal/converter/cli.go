package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"ngffconverter/internal/logging"
	"ngffconverter/internal/services"
)

var commandContext = exec.CommandContext

const (
	// ToolBioformats2Raw is the default NGFF writer binary.
	ToolBioformats2Raw = "bioformats2raw"
	// ToolRaw2OmeTiff is the default OME-TIFF writer binary.
	ToolRaw2OmeTiff = "raw2ometiff"

	defaultGracePeriod = 30 * time.Second
	outputTailLines    = 5
)

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = strings.TrimSpace(binary)
		}
	}
}

// WithArgs sets arguments passed before per-task parameters on every invocation.
func WithArgs(args ...string) Option {
	return func(c *CLI) {
		c.args = append([]string(nil), args...)
	}
}

// WithLogger sets the logger used for tool output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGracePeriod sets how long an interrupted tool may take to exit before it
// is killed.
func WithGracePeriod(d time.Duration) Option {
	return func(c *CLI) {
		if d > 0 {
			c.grace = d
		}
	}
}

// CLI wraps a conversion tool invoked as `binary [args] [params] input output`.
type CLI struct {
	tool   string
	binary string
	args   []string
	grace  time.Duration
	logger *slog.Logger
}

// NewCLI constructs a CLI client for tool, which is also the default binary.
func NewCLI(tool string, opts ...Option) *CLI {
	cli := &CLI{tool: tool, binary: tool, grace: defaultGracePeriod, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cli)
	}
	cli.logger = logging.NewComponentLogger(cli.logger, tool)
	return cli
}

// NewBioformats2Raw returns the NGFF writer client.
func NewBioformats2Raw(opts ...Option) *CLI {
	return NewCLI(ToolBioformats2Raw, opts...)
}

// NewRaw2OmeTiff returns the OME-TIFF writer client.
func NewRaw2OmeTiff(opts ...Option) *CLI {
	return NewCLI(ToolRaw2OmeTiff, opts...)
}

// Binary returns the executable this client launches.
func (c *CLI) Binary() string {
	return c.binary
}

// Convert runs the tool and blocks until it exits. JSON progress lines and
// progress-bar counters on the tool's output are forwarded to listener;
// anything else is logged at debug level. Cancelling ctx interrupts the tool
// and kills it after the grace period. A tool that exits 0 is a success even
// when ctx ended meanwhile.
func (c *CLI) Convert(ctx context.Context, input, output string, params []string, listener ProgressListener) (int, error) {
	if strings.TrimSpace(input) == "" {
		return -1, services.Wrap(services.ErrValidation, c.tool, "convert", "input path required", nil)
	}
	if strings.TrimSpace(output) == "" {
		return -1, services.Wrap(services.ErrValidation, c.tool, "convert", "output path required", nil)
	}
	if listener == nil {
		listener = NopListener{}
	}

	args := make([]string, 0, len(c.args)+len(params)+2)
	args = append(args, c.args...)
	args = append(args, params...)
	args = append(args, input, output)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = c.grace
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	c.logger.Debug("launching converter",
		logging.String("binary", c.binary),
		logging.String("args", strings.Join(args, " ")),
	)
	if err := cmd.Start(); err != nil {
		return -1, services.Wrap(services.ErrExternalTool, c.tool, "start", "launch failed", err)
	}

	tail := make([]string, 0, outputTailLines)
	parser := newOutputParser(listener)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*maxLineBytes)
	scanner.Split(splitOutputLines)
	for scanner.Scan() {
		line := scanner.Bytes()
		if parser.handle(line) {
			continue
		}
		text := strings.TrimSpace(string(line))
		if text == "" {
			continue
		}
		c.logger.Debug("converter output", logging.String("line", text))
		if len(tail) == outputTailLines {
			tail = tail[1:]
		}
		tail = append(tail, text)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// The tool blocks on a full pipe unless the rest is consumed.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		if scanErr != nil {
			c.logger.Warn("converter output truncated",
				logging.Error(scanErr),
				logging.String(logging.FieldEventType, "converter_output_truncated"),
				logging.String(logging.FieldErrorHint, "progress may be incomplete; the conversion itself succeeded"),
			)
		}
		return 0, nil
	}
	if ctx.Err() != nil {
		return exitCode(cmd), services.Wrap(services.ErrCancelled, c.tool, "convert", "interrupted", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		message := fmt.Sprintf("exited with status %d", exitErr.ExitCode())
		if len(tail) > 0 {
			message += ": " + tail[len(tail)-1]
		}
		return exitErr.ExitCode(), services.Wrap(services.ErrExternalTool, c.tool, "convert", message, nil)
	}
	return -1, services.Wrap(services.ErrExternalTool, c.tool, "wait", "converter did not exit cleanly", waitErr)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

var _ NGFF = (*CLI)(nil)
var _ TIFF = (*CLI)(nil)
