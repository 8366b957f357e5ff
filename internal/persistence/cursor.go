package persistence

import (
	"context"
	"strings"
	"time"
)

// CursorStore persists the instant of the last successful import.
type CursorStore struct {
	kv  KV
	key string
}

// NewCursorStore constructs a CursorStore on kv.
func NewCursorStore(kv KV) *CursorStore {
	return &CursorStore{kv: kv, key: CursorKey}
}

// Read returns the stored cursor. Storage errors and unparsable values read as
// "no cursor" so the import falls back to the lookback window.
func (s *CursorStore) Read(ctx context.Context) (time.Time, bool) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return time.Time{}, false
	}
	return DecodeCursor(raw)
}

// Write stores ts as the new cursor.
func (s *CursorStore) Write(ctx context.Context, ts time.Time) error {
	return s.kv.Set(ctx, s.key, EncodeCursor(ts))
}

// Clear removes the cursor so the next import behaves like a first run.
func (s *CursorStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}

// EncodeCursor serialises the cursor to its stored string form.
func EncodeCursor(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// DecodeCursor parses a stored cursor.
func DecodeCursor(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
