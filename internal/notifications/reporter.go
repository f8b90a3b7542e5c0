package notifications

import (
	"context"
	"log/slog"
	"time"

	"ngffconverter/internal/config"
	"ngffconverter/internal/logging"
	"ngffconverter/internal/runner"
)

// Reporter forwards failures and the run summary to a Service. Delivery
// errors are logged and never affect the run.
type Reporter struct {
	service        Service
	notifyFailures bool
	minWorkflows   int
	logger         *slog.Logger
	started        time.Time
}

// NewReporter builds a Reporter using the [notifications] settings of cfg.
func NewReporter(service Service, cfg *config.Config, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reporter{
		service: service,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
	if cfg != nil {
		r.notifyFailures = cfg.Notifications.NotifyFailures
		r.minWorkflows = cfg.Notifications.MinWorkflows
	}
	return r
}

// Report implements runner.Reporter.
func (r *Reporter) Report(snap runner.Snapshot) {
	if r == nil || r.service == nil {
		return
	}
	ctx := context.Background()
	switch snap.Type {
	case runner.EventRunStarted:
		r.started = snap.Time
	case runner.EventWorkflowFailed:
		if !r.notifyFailures {
			return
		}
		r.deliver("workflow failure", r.service.NotifyWorkflowFailed(ctx, snap.Input, snap.Message))
	case runner.EventRunCompleted:
		if snap.Summary.Total == 0 || snap.Summary.Total < r.minWorkflows {
			return
		}
		var duration time.Duration
		if !r.started.IsZero() {
			duration = snap.Time.Sub(r.started)
		}
		r.deliver("run summary", r.service.NotifyRunCompleted(ctx, snap.Summary, duration))
	}
}

func (r *Reporter) deliver(what string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(r.logger, "notification not delivered", "notification_failed",
		logging.String("notification", what),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "conversion results were not pushed"),
	)
}

var _ runner.Reporter = (*Reporter)(nil)
