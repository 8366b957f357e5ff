package bridge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/healthsync/internal/activity"
	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/native"
	"example.com/healthsync/internal/permissions"
)

// MetadataWorkoutName is the metadata key carrying the original session name.
const MetadataWorkoutName = "workoutName"

// DedupCache remembers exported sessions.
type DedupCache interface {
	Contains(ctx context.Context, sessionID string) bool
	Record(ctx context.Context, sessionID string, exportedAt time.Time) error
}

// ExportRequest describes one finished in-app session.
type ExportRequest struct {
	SessionID  string
	StartedAt  string
	FinishedAt string
	Name       string
	EnergyKcal *float64
	// Enabled is the user's export toggle.
	Enabled     bool
	Preferences domain.Preferences
}

// Exporter writes finished in-app sessions to the native health store.
type Exporter struct {
	locator    Locator
	negotiator PermissionRequester
	dedup      DedupCache
	now        func() time.Time
}

// ExporterOption configures optional behaviour for the Exporter.
type ExporterOption func(*Exporter)

// WithExportClock overrides the time source.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// WithExportNegotiator overrides the permission negotiator.
func WithExportNegotiator(n PermissionRequester) ExporterOption {
	return func(e *Exporter) { e.negotiator = n }
}

// NewExporter constructs an Exporter.
func NewExporter(locator Locator, dedup DedupCache, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		locator:    locator,
		negotiator: permissions.Negotiator{},
		dedup:      dedup,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes one session. Concurrent exports of the same session may both reach
// the native store before either records itself in the dedup cache; the native
// external id absorbs that duplicate.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (out Outcome) {
	out = Outcome{RunID: uuid.NewString(), Pipeline: PipelineExport, SessionID: req.SessionID}
	defer recoverInto(&out)

	avail, module := e.locator.Locate()
	if !avail.Available {
		return out.finish(StatusUnavailable, avail.Reason, nil)
	}
	writer, ok := module.(native.WorkoutWriter)
	if !ok {
		return out.finish(StatusUnavailable, "native health module cannot save workouts", nil)
	}

	if !req.Enabled || req.Preferences.WorkoutsDenied() {
		return out.finish(StatusDisabled, "workout export is turned off", nil)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return out.finish(StatusSkipped, "missing session id", nil)
	}
	start, startOK := parseTimestamp(req.StartedAt)
	end, endOK := parseTimestamp(req.FinishedAt)
	if !startOK || !endOK {
		return out.finish(StatusSkipped, "session timestamps could not be parsed", nil)
	}
	if !end.After(start) {
		return out.finish(StatusSkipped, "session finished before it started", nil)
	}

	if e.dedup.Contains(ctx, sessionID) {
		return out.finish(StatusSkipped, "session already exported", nil)
	}

	grants := req.Preferences.Grants()
	grants.Workouts = true
	if !e.negotiator.Request(ctx, module, grants, permissions.ModeReadWrite) {
		return out.finish(StatusDenied, "health permissions were not granted", nil)
	}

	sample := native.WorkoutSample{
		ActivityType: string(activity.Classify(req.Name)),
		Start:        start,
		End:          end,
		ExternalID:   sessionID,
	}
	if req.EnergyKcal != nil && !math.IsNaN(*req.EnergyKcal) && !math.IsInf(*req.EnergyKcal, 0) {
		energy := *req.EnergyKcal
		sample.EnergyKcal = &energy
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		sample.Metadata = map[string]string{MetadataWorkoutName: name}
	}

	if err := writer.SaveWorkout(ctx, sample); err != nil {
		return out.finish(StatusUnavailable, "saving workout to the native store failed", fmt.Errorf("save workout: %w", err))
	}

	var recordErr error
	if err := e.dedup.Record(ctx, sessionID, e.now().UTC()); err != nil {
		recordErr = fmt.Errorf("record export: %w", err)
	}
	return out.finish(StatusExported, "", recordErr)
}
