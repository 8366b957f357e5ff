package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/healthsync/internal/bridge"
)

func TestMetricsObserverCountsOutcomes(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	observer := &MetricsObserver{now: func() time.Time { return now }}
	ctx := context.Background()

	synced := testutil.ToFloat64(outcomeCounter.WithLabelValues(bridge.PipelineImport, string(bridge.StatusSynced)))
	imported := testutil.ToFloat64(importedCounter)
	skipped := testutil.ToFloat64(backendSkippedCounter)

	observer.Observe(ctx, bridge.Outcome{Pipeline: bridge.PipelineImport, Status: bridge.StatusSynced, Imported: 3, Skipped: 2})
	observer.Observe(ctx, bridge.Outcome{Pipeline: bridge.PipelineExport, Status: bridge.StatusExported})

	require.Equal(t, synced+1, testutil.ToFloat64(outcomeCounter.WithLabelValues(bridge.PipelineImport, string(bridge.StatusSynced))))
	require.Equal(t, imported+3, testutil.ToFloat64(importedCounter))
	require.Equal(t, skipped+2, testutil.ToFloat64(backendSkippedCounter))
	require.Equal(t, float64(now.Unix()), testutil.ToFloat64(lastSyncGauge))
	require.Equal(t, float64(now.Unix()), testutil.ToFloat64(lastExportGauge))
}

func TestSentryObserverIgnoresCleanOutcomes(t *testing.T) {
	require.NotPanics(t, func() {
		SentryObserver{}.Observe(context.Background(), bridge.Outcome{Status: bridge.StatusSynced})
		SentryObserver{}.Observe(context.Background(), bridge.Outcome{Status: bridge.StatusUnavailable, Err: errors.New("boom")})
	})
}

func TestInitSentryWithoutDSN(t *testing.T) {
	var logs bytes.Buffer
	require.NoError(t, InitSentry(SentryConfig{}, slog.New(slog.NewJSONHandler(&logs, nil))))
	require.Contains(t, logs.String(), "error reporting disabled")
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(&logs, "healthsync-api", "warn")
	logger.Info("hidden")
	logger.Warn("shown")

	require.NotContains(t, logs.String(), "hidden")
	require.Contains(t, logs.String(), `"service":"healthsync-api"`)
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
