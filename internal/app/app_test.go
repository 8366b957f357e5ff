package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/healthsync/internal/bridge"
	"example.com/healthsync/internal/config"
)

func testConfig(backendURL string) config.Config {
	return config.Config{
		StoreBackend:         config.StoreMemory,
		BackendURL:           backendURL,
		HealthPlatform:       "ios",
		HealthCompanionURL:   CompanionInProcess,
		HTTPTimeout:          5 * time.Second,
		SyncRoundTimeout:     5 * time.Second,
		ImportThrottleWindow: 18 * time.Hour,
		ImportLookbackDays:   14,
		ExportDedupCapacity:  200,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppImportsExportsAndResets(t *testing.T) {
	var imports, clears atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/integrations/health/import":
			imports.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]int{"imported": 0, "skipped": 0})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/integrations/health/imports":
			clears.Add(1)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	a, err := New(context.Background(), testConfig(backend.URL), discardLogger())
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	out := a.Runner.SyncNow(ctx, false, nil)
	require.Equal(t, bridge.StatusSynced, out.Status, out.Reason)
	require.EqualValues(t, 1, imports.Load())

	out = a.Runner.SyncNow(ctx, false, nil)
	require.Equal(t, bridge.StatusSkipped, out.Status)

	out = a.Runner.Export(ctx, bridge.ExportRequest{
		SessionID:  "session-1",
		StartedAt:  "2026-03-10T07:00:00Z",
		FinishedAt: "2026-03-10T07:45:00Z",
		Name:       "Yoga flow",
		Enabled:    true,
	})
	require.Equal(t, bridge.StatusExported, out.Status)

	snap := a.Status.Snapshot(ctx)
	require.True(t, snap.Availability.Available)
	require.NotNil(t, snap.LastSyncAt)
	require.Equal(t, 1, snap.ExportedSessions)

	require.NoError(t, a.Resetter.Reset(ctx))
	require.EqualValues(t, 1, clears.Load())
	snap = a.Status.Snapshot(ctx)
	require.Nil(t, snap.LastSyncAt)
	require.Zero(t, snap.ExportedSessions)
}

func TestAppWithoutCompanionIsUnavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.HealthCompanionURL = ""

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	out := a.Runner.SyncNow(context.Background(), true, nil)
	require.Equal(t, bridge.StatusUnavailable, out.Status)
	require.False(t, a.Prober.Probe().Available)
}

func TestAppRejectsUnknownStore(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.StoreBackend = "sqlite"

	_, err := New(context.Background(), cfg, discardLogger())
	require.ErrorContains(t, err, "unknown store backend")
}
