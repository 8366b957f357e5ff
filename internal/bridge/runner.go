package bridge

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"example.com/healthsync/internal/domain"
)

type importer interface {
	Import(ctx context.Context, opts ImportOptions) Outcome
}

type exporter interface {
	Export(ctx context.Context, req ExportRequest) Outcome
}

// Runner schedules import rounds, serialises them, and reports every outcome to its
// observers.
type Runner struct {
	importer         importer
	exporter         exporter
	interval         time.Duration
	roundTimeout     time.Duration
	preferences      domain.Preferences
	observer         Observer
	logger           *slog.Logger
	inFlight         atomic.Bool
	shutdownComplete chan struct{}
}

// RunnerOption configures optional behaviour for the Runner.
type RunnerOption func(*Runner)

// WithInterval sets how often Start attempts an unforced import. Zero disables the loop.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// WithRoundTimeout bounds a single pipeline run.
func WithRoundTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.roundTimeout = d }
}

// WithPreferences sets the preferences used by scheduled rounds.
func WithPreferences(p domain.Preferences) RunnerOption {
	return func(r *Runner) { r.preferences = p }
}

// WithObservers registers outcome observers.
func WithObservers(observers ...Observer) RunnerOption {
	return func(r *Runner) { r.observer = Observers(observers) }
}

// WithLogger sets the logger used for outcome logging.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(imp importer, exp exporter, opts ...RunnerOption) *Runner {
	r := &Runner{
		importer:         imp,
		exporter:         exp,
		observer:         Observers(nil),
		logger:           slog.Default(),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SyncNow runs one import round unless another is already in flight. A nil prefs
// uses the runner's configured preferences.
func (r *Runner) SyncNow(ctx context.Context, force bool, prefs *domain.Preferences) Outcome {
	if !r.inFlight.CompareAndSwap(false, true) {
		out := Outcome{RunID: uuid.NewString(), Pipeline: PipelineImport, Status: StatusSkipped, Reason: "import already in flight"}
		r.report(ctx, out)
		return out
	}
	defer r.inFlight.Store(false)

	opts := ImportOptions{Force: force, Preferences: r.preferences}
	if prefs != nil {
		opts.Preferences = *prefs
	}

	roundCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	out := r.importer.Import(roundCtx, opts)
	r.report(ctx, out)
	return out
}

// Export runs the export pipeline for one session.
func (r *Runner) Export(ctx context.Context, req ExportRequest) Outcome {
	roundCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	out := r.exporter.Export(roundCtx, req)
	r.report(ctx, out)
	return out
}

// Start launches the scheduling loop. It should be called in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	defer close(r.shutdownComplete)
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.SyncNow(ctx, false, nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait waits until the scheduling loop stops.
func (r *Runner) Wait() {
	<-r.shutdownComplete
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.roundTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.roundTimeout)
}

func (r *Runner) report(ctx context.Context, out Outcome) {
	attrs := []any{
		slog.String("run_id", out.RunID),
		slog.String("pipeline", out.Pipeline),
		slog.String("status", string(out.Status)),
	}
	if out.Reason != "" {
		attrs = append(attrs, slog.String("reason", out.Reason))
	}
	if out.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", out.SessionID))
	}
	if out.Pipeline == PipelineImport && out.Status == StatusSynced {
		attrs = append(attrs, slog.Int("fetched", out.Fetched), slog.Int("imported", out.Imported), slog.Int("skipped", out.Skipped))
	}

	switch {
	case out.Err != nil:
		r.logger.ErrorContext(ctx, "health sync run failed", append(attrs, slog.Any("error", out.Err))...)
	case out.Status == StatusUnavailable:
		r.logger.WarnContext(ctx, "health sync run unavailable", attrs...)
	default:
		r.logger.InfoContext(ctx, "health sync run finished", attrs...)
	}

	r.observer.Observe(ctx, out)
}
