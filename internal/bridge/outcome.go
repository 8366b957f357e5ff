// Package bridge reconciles workouts between the native health store and the
// backend: importing workouts recorded elsewhere and exporting sessions recorded in
// the app. Both pipelines return an Outcome and never panic or fail past their
// entry points.
package bridge

import (
	"context"
	"fmt"
)

// Status is the terminal state of one pipeline run.
type Status string

const (
	// StatusUnavailable covers platform, native and network failures. Safe to retry.
	StatusUnavailable Status = "unavailable"
	// StatusDisabled means the user or feature opted out.
	StatusDisabled Status = "disabled"
	// StatusDenied means permission negotiation was declined.
	StatusDenied Status = "denied"
	// StatusSkipped covers throttling, already-exported sessions and degenerate input.
	StatusSkipped Status = "skipped"
	// StatusSynced marks a completed import round-trip.
	StatusSynced Status = "synced"
	// StatusExported marks a workout written to the native store.
	StatusExported Status = "exported"
)

// Pipeline names.
const (
	PipelineImport = "import"
	PipelineExport = "export"
)

// Outcome describes how a pipeline run ended.
type Outcome struct {
	RunID     string `json:"runId"`
	Pipeline  string `json:"pipeline"`
	Status    Status `json:"status"`
	Reason    string `json:"reason,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Fetched   int    `json:"fetched,omitempty"`
	Imported  int    `json:"imported,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
	// Err is the underlying failure, if any, for the caller to log. It may be set on
	// a successful run when bookkeeping after the main step failed.
	Err error `json:"-"`
}

func (o Outcome) finish(status Status, reason string, err error) Outcome {
	o.Status = status
	o.Reason = reason
	o.Err = err
	return o
}

// recoverInto converts a panic raised by a collaborator into an unavailable outcome.
func recoverInto(out *Outcome) {
	if r := recover(); r != nil {
		*out = out.finish(StatusUnavailable, "collaborator panicked", fmt.Errorf("panic: %v", r))
	}
}

// Observer receives finished outcomes, e.g. for logging, metrics or event publishing.
type Observer interface {
	Observe(ctx context.Context, out Outcome)
}

// Observers fans an outcome out to each observer in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(ctx context.Context, out Outcome) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(ctx, out)
		}
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, out Outcome)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, out Outcome) { f(ctx, out) }
