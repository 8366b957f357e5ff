package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"example.com/healthsync/internal/bridge"
)

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry initialises the global Sentry client.
func InitSentry(cfg SentryConfig, logger *slog.Logger) error {
	if cfg.DSN == "" {
		logger.Warn("sentry DSN not configured, error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	logger.Info("sentry initialised", slog.String("environment", cfg.Environment))
	return nil
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// CaptureError reports err with tags. It is a no-op when err is nil or Sentry is
// not initialised.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// SentryObserver reports outcomes that carry an underlying error.
type SentryObserver struct{}

// Observe implements bridge.Observer.
func (SentryObserver) Observe(ctx context.Context, out bridge.Outcome) {
	if out.Err == nil {
		return
	}
	tags := map[string]string{
		"pipeline": out.Pipeline,
		"status":   string(out.Status),
		"run_id":   out.RunID,
	}
	if out.SessionID != "" {
		tags["session_id"] = out.SessionID
	}
	CaptureError(ctx, out.Err, tags)
}
