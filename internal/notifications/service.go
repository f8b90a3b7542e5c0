package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ngffconverter/internal/config"
	"ngffconverter/internal/runner"
)

const userAgent = "ngffconverter/0.1.0"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary runner.Summary, duration time.Duration) error
	NotifyWorkflowFailed(ctx context.Context, input, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary runner.Summary, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{tags: []string{"ngffconverter", "run"}}
	switch {
	case summary.Interrupted || summary.Cancelled > 0:
		data.title = "NGFF Converter - Run Interrupted"
		data.message = fmt.Sprintf("Interrupted after %s: %d converted, %d failed, %d not started",
			duration, summary.Succeeded, summary.Failed, summary.Cancelled+summary.Skipped)
		data.tags = append(data.tags, "interrupted")
	case summary.Failed > 0:
		data.title = "NGFF Converter - Run Complete (with errors)"
		data.message = fmt.Sprintf("%d converted, %d failed in %s", summary.Succeeded, summary.Failed, duration)
		data.tags = append(data.tags, "warning")
		data.priority = "high"
	default:
		data.title = "NGFF Converter - Run Complete"
		data.message = fmt.Sprintf("%d converted in %s", summary.Succeeded, duration)
		data.tags = append(data.tags, "completed")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkflowFailed(ctx context.Context, input, message string) error {
	var builder strings.Builder
	builder.WriteString("Conversion failed: ")
	builder.WriteString(filepath.Base(strings.TrimSpace(input)))
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString("\n")
		builder.WriteString(message)
	}
	data := payload{
		title:    "NGFF Converter - Error",
		message:  builder.String(),
		tags:     []string{"ngffconverter", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "NGFF Converter - Test",
		message:  "Notification system test",
		tags:     []string{"ngffconverter", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, runner.Summary, time.Duration) error {
	return nil
}
func (noopService) NotifyWorkflowFailed(context.Context, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
