// Package domain defines the records exchanged between the native health store,
// the bridge and the backend.
package domain

import (
	"math"
	"time"
)

// FallbackWorkoutName is used whenever a native record carries no usable label.
const FallbackWorkoutName = "Imported workout"

// ImportedWorkoutRecord is a native workout after timestamps have been parsed.
type ImportedWorkoutRecord struct {
	ExternalID      string
	ActivityLabel   string
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds *float64
	EnergyBurned    *float64
	AvgHeartRate    *float64
	MaxHeartRate    *float64
	SourceName      string
}

// MaxDurationSeconds caps derived durations.
const MaxDurationSeconds = math.MaxInt32

// Duration returns the session length in whole seconds, clamped to
// [0, MaxDurationSeconds]. A finite explicit duration wins over the start/end
// difference. A record with neither has no duration.
func (r ImportedWorkoutRecord) Duration() *int {
	var seconds float64
	switch {
	case r.DurationSeconds != nil && !math.IsNaN(*r.DurationSeconds) && !math.IsInf(*r.DurationSeconds, 0):
		seconds = *r.DurationSeconds
	case r.EndedAt != nil:
		seconds = r.EndedAt.Sub(r.StartedAt).Seconds()
	default:
		return nil
	}
	seconds = math.Round(seconds)
	if seconds < 0 {
		seconds = 0
	}
	if seconds > MaxDurationSeconds {
		seconds = MaxDurationSeconds
	}
	rounded := int(seconds)
	return &rounded
}

// NormalizedSessionPayload is the wire shape submitted to the backend import endpoint.
type NormalizedSessionPayload struct {
	ExternalID       string     `json:"externalId,omitempty"`
	Name             string     `json:"name"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	DurationSeconds  *int       `json:"durationSeconds,omitempty"`
	ActiveEnergyKcal *float64   `json:"activeEnergyKcal,omitempty"`
	AvgHeartRate     *float64   `json:"avgHeartRate,omitempty"`
	MaxHeartRate     *float64   `json:"maxHeartRate,omitempty"`
	SourceName       string     `json:"sourceName,omitempty"`
}
