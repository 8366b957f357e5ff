package bridge

import (
	"context"
	"time"

	"example.com/healthsync/internal/availability"
)

// Snapshot summarises the local sync state.
type Snapshot struct {
	Availability     availability.Availability `json:"availability"`
	LastSyncAt       *time.Time                `json:"lastSyncAt,omitempty"`
	ExportedSessions int                       `json:"exportedSessions"`
	DedupCapacity    int                       `json:"dedupCapacity"`
}

type dedupInspector interface {
	Entries(ctx context.Context) (map[string]time.Time, error)
	Capacity() int
}

// StatusReporter reads the bridge state without changing it.
type StatusReporter struct {
	prober interface{ Probe() availability.Availability }
	cursor CursorStore
	dedup  dedupInspector
}

// NewStatusReporter constructs a StatusReporter.
func NewStatusReporter(prober interface{ Probe() availability.Availability }, cursor CursorStore, dedup dedupInspector) *StatusReporter {
	return &StatusReporter{prober: prober, cursor: cursor, dedup: dedup}
}

// Snapshot returns the current state. Storage errors read as empty state.
func (s *StatusReporter) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Availability:  s.prober.Probe(),
		DedupCapacity: s.dedup.Capacity(),
	}
	if ts, ok := s.cursor.Read(ctx); ok {
		snap.LastSyncAt = &ts
	}
	if entries, err := s.dedup.Entries(ctx); err == nil {
		snap.ExportedSessions = len(entries)
	}
	return snap
}
