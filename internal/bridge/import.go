package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/healthsync/internal/availability"
	"example.com/healthsync/internal/backend"
	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/native"
	"example.com/healthsync/internal/permissions"
)

// Defaults for the import gate and window.
const (
	DefaultThrottleWindow = 18 * time.Hour
	DefaultLookbackDays   = 14
)

// Locator probes the native integration and returns the module when usable.
type Locator interface {
	Locate() (availability.Availability, native.PermissionInitializer)
}

// PermissionRequester negotiates consent with the native module.
type PermissionRequester interface {
	Request(ctx context.Context, module native.PermissionInitializer, grants domain.Grants, mode permissions.Mode) bool
}

// CursorStore persists the last successful import instant.
type CursorStore interface {
	Read(ctx context.Context) (time.Time, bool)
	Write(ctx context.Context, ts time.Time) error
}

// ImportSubmitter is the backend import endpoint.
type ImportSubmitter interface {
	Import(ctx context.Context, req backend.ImportRequest) (backend.ImportResult, error)
}

// ImportOptions parameterise one import run.
type ImportOptions struct {
	// Force bypasses the throttle and re-reads the whole lookback window.
	Force       bool
	Preferences domain.Preferences
}

// Importer pulls workouts recorded outside the app into the backend.
type Importer struct {
	locator    Locator
	negotiator PermissionRequester
	cursor     CursorStore
	backend    ImportSubmitter
	throttle   time.Duration
	lookback   int
	now        func() time.Time
}

// ImporterOption configures optional behaviour for the Importer.
type ImporterOption func(*Importer)

// WithThrottleWindow overrides the minimum interval between unforced imports.
func WithThrottleWindow(d time.Duration) ImporterOption {
	return func(i *Importer) {
		if d > 0 {
			i.throttle = d
		}
	}
}

// WithLookbackDays overrides the first-run and forced import window.
func WithLookbackDays(days int) ImporterOption {
	return func(i *Importer) {
		if days > 0 {
			i.lookback = days
		}
	}
}

// WithImportClock overrides the time source.
func WithImportClock(now func() time.Time) ImporterOption {
	return func(i *Importer) { i.now = now }
}

// WithImportNegotiator overrides the permission negotiator.
func WithImportNegotiator(n PermissionRequester) ImporterOption {
	return func(i *Importer) { i.negotiator = n }
}

// NewImporter constructs an Importer.
func NewImporter(locator Locator, cursor CursorStore, submitter ImportSubmitter, opts ...ImporterOption) *Importer {
	i := &Importer{
		locator:    locator,
		negotiator: permissions.Negotiator{},
		cursor:     cursor,
		backend:    submitter,
		throttle:   DefaultThrottleWindow,
		lookback:   DefaultLookbackDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import runs one import round. Callers must not run two rounds concurrently:
// both would read the same cursor and submit the same window twice.
func (i *Importer) Import(ctx context.Context, opts ImportOptions) (out Outcome) {
	out = Outcome{RunID: uuid.NewString(), Pipeline: PipelineImport}
	defer recoverInto(&out)

	avail, module := i.locator.Locate()
	if !avail.Available {
		return out.finish(StatusUnavailable, avail.Reason, nil)
	}
	reader, ok := module.(native.WorkoutReader)
	if !ok {
		return out.finish(StatusUnavailable, "native health module cannot read workouts", nil)
	}

	grants := opts.Preferences.Grants()
	if !grants.Workouts {
		return out.finish(StatusDisabled, "workout sync is turned off", nil)
	}

	now := i.now().UTC()
	cursor, hasCursor := i.cursor.Read(ctx)
	if !opts.Force && hasCursor {
		if since := now.Sub(cursor); since < i.throttle {
			return out.finish(StatusSkipped, fmt.Sprintf("last sync %s ago, throttle window %s", since.Round(time.Minute), i.throttle), nil)
		}
	}

	if !i.negotiator.Request(ctx, module, grants, permissions.ModeReadWrite) {
		return out.finish(StatusDenied, "health permissions were not granted", nil)
	}

	start := now.Add(-time.Duration(i.lookback) * 24 * time.Hour)
	if hasCursor && !opts.Force {
		start = cursor
	}

	rows, err := reader.Workouts(ctx, native.Query{Since: start, IncludeHeartRate: grants.HeartRate})
	if err != nil {
		return out.finish(StatusUnavailable, "reading native workouts failed", fmt.Errorf("read workouts: %w", err))
	}
	out.Fetched = len(rows)
	payloads := MapWorkouts(rows, grants)

	result, err := i.backend.Import(ctx, backend.ImportRequest{
		Workouts:    payloads,
		Permissions: grants,
		LastSyncAt:  now,
	})
	if err != nil {
		return out.finish(StatusUnavailable, "backend import failed", fmt.Errorf("submit import: %w", err))
	}
	out.Imported = result.Imported
	out.Skipped = result.Skipped

	var cursorErr error
	if err := i.cursor.Write(ctx, now); err != nil {
		cursorErr = fmt.Errorf("advance cursor: %w", err)
	}
	return out.finish(StatusSynced, "", cursorErr)
}
