// Package memory provides an in-process native health store for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"example.com/healthsync/internal/native"
)

// Store records every call so tests can assert on native traffic.
type Store struct {
	mu sync.Mutex

	workouts []native.Workout
	saved    []native.WorkoutSample
	grants   []native.Permissions
	queries  []native.Query

	InitErr  error
	ReadErr  error
	WriteErr error
}

// NewStore seeds the store with workouts returned by reads.
func NewStore(workouts ...native.Workout) *Store {
	return &Store{workouts: workouts}
}

// InitHealthKit records the requested permissions.
func (s *Store) InitHealthKit(_ context.Context, perms native.Permissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, perms)
	return s.InitErr
}

// Workouts returns seeded workouts whose start parses at or after q.Since. Rows with
// an unparsable start and heart-rate fields are returned as-is regardless of the
// query, mimicking a misbehaving native layer.
func (s *Store) Workouts(_ context.Context, q native.Query) ([]native.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	out := make([]native.Workout, 0, len(s.workouts))
	for _, w := range s.workouts {
		if start, err := time.Parse(time.RFC3339Nano, w.Start); err == nil && start.Before(q.Since) {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// SaveWorkout appends the sample unless WriteErr is set.
func (s *Store) SaveWorkout(_ context.Context, sample native.WorkoutSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.saved = append(s.saved, sample)
	return nil
}

// Saved returns a copy of the written samples.
func (s *Store) Saved() []native.WorkoutSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]native.WorkoutSample(nil), s.saved...)
}

// PermissionRequests returns a copy of every permission request.
func (s *Store) PermissionRequests() []native.Permissions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]native.Permissions(nil), s.grants...)
}

// Queries returns a copy of every read query.
func (s *Store) Queries() []native.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]native.Query(nil), s.queries...)
}
