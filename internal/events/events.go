// Package events defines the Kafka payloads the bridge consumes and emits.
package events

import (
	"time"

	"example.com/healthsync/internal/bridge"
)

// Event types carried in the event_type header.
const (
	EventWorkoutSessionCompleted = "workout_session_completed"
	EventHealthSyncOutcome       = "health_sync_outcome"
)

// WorkoutSessionCompleted is emitted by the app backend when a user finishes an
// in-app session.
type WorkoutSessionCompleted struct {
	SessionID    string   `json:"session_id"`
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	StartedAt    string   `json:"started_at"`
	FinishedAt   string   `json:"finished_at"`
	EnergyKcal   *float64 `json:"energy_kcal,omitempty"`
	ExportToggle *bool    `json:"export_enabled,omitempty"`
}

// ExportRequest maps the event onto the export pipeline. A missing toggle means
// export is enabled.
func (e WorkoutSessionCompleted) ExportRequest() bridge.ExportRequest {
	enabled := true
	if e.ExportToggle != nil {
		enabled = *e.ExportToggle
	}
	return bridge.ExportRequest{
		SessionID:  e.SessionID,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
		Name:       e.Name,
		EnergyKcal: e.EnergyKcal,
		Enabled:    enabled,
	}
}

// SyncOutcome reports how one pipeline run ended.
type SyncOutcome struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Fetched    int       `json:"fetched,omitempty"`
	Imported   int       `json:"imported,omitempty"`
	Skipped    int       `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
