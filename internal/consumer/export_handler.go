package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/healthsync/internal/bridge"
	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/events"
)

// ErrExportUnavailable marks an export the Processor retries in place.
var ErrExportUnavailable = errors.New("export unavailable")

type exporter interface {
	Export(ctx context.Context, req bridge.ExportRequest) bridge.Outcome
}

// ExportHandler runs the export pipeline for workout_session_completed events.
// Other event types and undecodable payloads are acknowledged without action.
type ExportHandler struct {
	exporter    exporter
	preferences domain.Preferences
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exp exporter, prefs domain.Preferences) *ExportHandler {
	return &ExportHandler{exporter: exp, preferences: prefs}
}

// Handle implements Handler.
func (h *ExportHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.EventWorkoutSessionCompleted {
		recordIgnored(msg.EventType)
		return nil
	}

	var event events.WorkoutSessionCompleted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		recordMalformed(msg.Topic, stagePayload)
		return nil
	}

	req := event.ExportRequest()
	req.Preferences = h.preferences
	out := h.exporter.Export(ctx, req)
	recordExportOutcome(out.Status)
	if out.Status == bridge.StatusUnavailable {
		return fmt.Errorf("%w: session %s: %s", ErrExportUnavailable, event.SessionID, out.Reason)
	}
	return nil
}
