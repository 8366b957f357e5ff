// Package persistence holds the bridge's durable state: the import cursor and the
// export dedup map, each stored under a single key of a KV backend.
package persistence

import (
	"context"
	"errors"
)

// Keys owned by the bridge.
const (
	CursorKey = "healthsync:last_sync_at"
	DedupKey  = "healthsync:exported_sessions"
)

// ErrNotFound is returned by KV.Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// KV is the durable key-value backend. Writes are last-write-wins.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// UpdateFunc derives the next value from the current one. found is false when the
// key is absent. Returning an error aborts the update without writing.
type UpdateFunc func(current string, found bool) (string, error)

// Updater is implemented by backends that can replace a value atomically with
// respect to other writers of the same key, including other processes.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
