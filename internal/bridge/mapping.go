package bridge

import (
	"strings"
	"time"

	"example.com/healthsync/internal/activity"
	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/native"
)

// Native stores report ISO 8601 with or without a colon in the offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseWorkout converts a raw native row. It reports false when the start
// timestamp cannot be parsed; an unparsable end is treated as missing.
func ParseWorkout(w native.Workout) (domain.ImportedWorkoutRecord, bool) {
	start, ok := parseTimestamp(w.Start)
	if !ok {
		return domain.ImportedWorkoutRecord{}, false
	}
	rec := domain.ImportedWorkoutRecord{
		ExternalID:      strings.TrimSpace(w.ID),
		ActivityLabel:   w.ActivityName,
		StartedAt:       start,
		DurationSeconds: w.DurationSeconds,
		EnergyBurned:    w.Calories,
		AvgHeartRate:    w.AvgHeartRate,
		MaxHeartRate:    w.MaxHeartRate,
		SourceName:      strings.TrimSpace(w.SourceName),
	}
	if end, ok := parseTimestamp(w.End); ok {
		rec.EndedAt = &end
	}
	return rec, true
}

// Normalize builds the backend payload for one record, dropping fields whose grant
// is off.
func Normalize(rec domain.ImportedWorkoutRecord, grants domain.Grants) domain.NormalizedSessionPayload {
	name, ok := activity.CanonicalLabel(rec.ActivityLabel)
	if !ok {
		name = domain.FallbackWorkoutName
	}

	payload := domain.NormalizedSessionPayload{
		ExternalID:      rec.ExternalID,
		Name:            name,
		StartedAt:       rec.StartedAt,
		FinishedAt:      rec.EndedAt,
		DurationSeconds: rec.Duration(),
		SourceName:      rec.SourceName,
	}
	if grants.ActiveEnergy {
		payload.ActiveEnergyKcal = rec.EnergyBurned
	}
	if grants.HeartRate {
		payload.AvgHeartRate = rec.AvgHeartRate
		payload.MaxHeartRate = rec.MaxHeartRate
	}
	return payload
}

// MapWorkouts parses and normalizes rows, dropping those with an unparsable start.
func MapWorkouts(rows []native.Workout, grants domain.Grants) []domain.NormalizedSessionPayload {
	out := make([]domain.NormalizedSessionPayload, 0, len(rows))
	for _, row := range rows {
		rec, ok := ParseWorkout(row)
		if !ok {
			continue
		}
		out = append(out, Normalize(rec, grants))
	}
	return out
}
