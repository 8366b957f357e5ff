// Package native describes the capability surface of the on-device health store.
// The bridge never assumes more than three entry points: initialise with
// permissions, list workouts since a date, and save one workout.
package native

import (
	"context"
	"time"
)

// Category is a native health data type the bridge may read or write.
type Category string

const (
	CategoryWorkout      Category = "Workout"
	CategoryActiveEnergy Category = "ActiveEnergyBurned"
	CategoryHeartRate    Category = "HeartRate"
)

// Permissions lists the categories requested from the native store.
type Permissions struct {
	Read  []Category `json:"read"`
	Write []Category `json:"write"`
}

// Workout is a raw workout row as reported by the native store. Timestamps are
// passed through untouched so malformed rows can be dropped by the caller.
type Workout struct {
	ID              string   `json:"id,omitempty"`
	ActivityName    string   `json:"activityName,omitempty"`
	Start           string   `json:"start"`
	End             string   `json:"end,omitempty"`
	DurationSeconds *float64 `json:"duration,omitempty"`
	Calories        *float64 `json:"calories,omitempty"`
	AvgHeartRate    *float64 `json:"avgHeartRate,omitempty"`
	MaxHeartRate    *float64 `json:"maxHeartRate,omitempty"`
	SourceName      string   `json:"sourceName,omitempty"`
}

// Query selects workouts to read.
type Query struct {
	Since            time.Time
	IncludeHeartRate bool
}

// WorkoutSample is a workout written to the native store.
type WorkoutSample struct {
	ActivityType string            `json:"activityType"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	EnergyKcal   *float64          `json:"energyBurned,omitempty"`
	ExternalID   string            `json:"externalId"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PermissionInitializer is the minimum capability a usable native module exposes.
type PermissionInitializer interface {
	InitHealthKit(ctx context.Context, perms Permissions) error
}

// WorkoutReader lists workouts recorded on the device.
type WorkoutReader interface {
	Workouts(ctx context.Context, q Query) ([]Workout, error)
}

// WorkoutWriter saves one workout to the device.
type WorkoutWriter interface {
	SaveWorkout(ctx context.Context, sample WorkoutSample) error
}

// Module is a fully capable native health module.
type Module interface {
	PermissionInitializer
	WorkoutReader
	WorkoutWriter
}
