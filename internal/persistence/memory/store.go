// Package memory provides a process-local KV backend.
package memory

import (
	"context"
	"sync"

	"example.com/healthsync/internal/persistence"
)

// Store is a mutex-guarded map implementing persistence.KV.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value stored at key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return value, nil
}

// Set stores value at key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Update replaces the value at key under the write lock.
func (s *Store) Update(_ context.Context, key string, fn persistence.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, found := s.values[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	s.values[key] = next
	return nil
}
