// Package observability wires logging, metrics and error reporting for the bridge.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/healthsync/internal/bridge"
)

var (
	outcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "bridge",
		Name:      "outcomes_total",
		Help:      "Number of pipeline runs grouped by pipeline and terminal status.",
	}, []string{"pipeline", "status"})

	importedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "import",
		Name:      "workouts_imported_total",
		Help:      "Workouts the backend reported as newly imported.",
	})

	backendSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "import",
		Name:      "workouts_skipped_total",
		Help:      "Workouts the backend reported as already known.",
	})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_sync",
		Subsystem: "import",
		Name:      "last_synced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent synced import round.",
	})

	lastExportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_sync",
		Subsystem: "export",
		Name:      "last_exported_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout written to the native store.",
	})
)

func init() {
	prometheus.MustRegister(outcomeCounter, importedCounter, backendSkippedCounter, lastSyncGauge, lastExportGauge)
}

// MetricsObserver records every outcome in Prometheus.
type MetricsObserver struct {
	now func() time.Time
}

// NewMetricsObserver constructs a MetricsObserver.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{now: time.Now}
}

// Observe implements bridge.Observer.
func (m *MetricsObserver) Observe(_ context.Context, out bridge.Outcome) {
	outcomeCounter.WithLabelValues(out.Pipeline, string(out.Status)).Inc()
	switch out.Status {
	case bridge.StatusSynced:
		importedCounter.Add(float64(out.Imported))
		backendSkippedCounter.Add(float64(out.Skipped))
		lastSyncGauge.Set(float64(m.now().Unix()))
	case bridge.StatusExported:
		lastExportGauge.Set(float64(m.now().Unix()))
	}
}
