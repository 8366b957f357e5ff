package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultDedupCapacity bounds the number of remembered exports.
const DefaultDedupCapacity = 200

// DedupCache remembers which sessions were exported and when. The map is stored as
// one JSON object of session id to RFC 3339 timestamp. Writers in one process are
// serialised; across processes Record relies on the backend implementing Updater.
type DedupCache struct {
	mu       sync.Mutex
	kv       KV
	key      string
	capacity int
}

// NewDedupCache constructs a DedupCache; capacity <= 0 uses DefaultDedupCapacity.
func NewDedupCache(kv KV, capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupCache{kv: kv, key: DedupKey, capacity: capacity}
}

// Capacity returns the eviction bound.
func (c *DedupCache) Capacity() int {
	return c.capacity
}

// Contains reports whether sessionID was exported. Read failures report false so a
// broken store never suppresses an export.
func (c *DedupCache) Contains(ctx context.Context, sessionID string) bool {
	entries, err := c.Entries(ctx)
	if err != nil {
		return false
	}
	_, ok := entries[sessionID]
	return ok
}

// Entries returns the current map. A missing or corrupt value reads as empty.
func (c *DedupCache) Entries(ctx context.Context) (map[string]time.Time, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntries(raw), nil
}

// Record stores sessionID -> exportedAt and evicts the oldest entries beyond capacity.
// A failed read aborts the write so stored entries are never replaced by an empty map.
func (c *DedupCache) Record(ctx context.Context, sessionID string, exportedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	apply := func(current string, found bool) (string, error) {
		entries := map[string]time.Time{}
		if found {
			entries = decodeEntries(current)
		}
		entries[sessionID] = exportedAt.UTC()
		evictOldest(entries, c.capacity)
		return encodeEntries(entries)
	}

	if updater, ok := c.kv.(Updater); ok {
		return updater.Update(ctx, c.key, apply)
	}

	current, err := c.kv.Get(ctx, c.key)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("read export cache: %w", err)
	}
	next, err := apply(current, found)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, c.key, next)
}

// Clear forgets every export.
func (c *DedupCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Delete(ctx, c.key)
}

// evictOldest sorts by export time and drops the head until len <= capacity.
// O(n log n) per call, with n bounded by capacity+1.
func evictOldest(entries map[string]time.Time, capacity int) {
	overflow := len(entries) - capacity
	if overflow <= 0 {
		return
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := entries[ids[i]], entries[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	for _, id := range ids[:overflow] {
		delete(entries, id)
	}
}

func encodeEntries(entries map[string]time.Time) (string, error) {
	encoded := make(map[string]string, len(entries))
	for id, ts := range entries {
		encoded[id] = ts.Format(time.RFC3339Nano)
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func decodeEntries(raw string) map[string]time.Time {
	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return map[string]time.Time{}
	}
	out := make(map[string]time.Time, len(stored))
	for id, value := range stored {
		ts, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			continue
		}
		out[id] = ts
	}
	return out
}
