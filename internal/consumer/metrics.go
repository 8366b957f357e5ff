package consumer

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/healthsync/internal/bridge"
)

var (
	exportOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "session_exports_total",
		Help:      "Session-completed events run through the export pipeline, by outcome status.",
	}, []string{"status"})

	ignoredEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "ignored_events_total",
		Help:      "Events acknowledged without an export because their type is not handled.",
	}, []string{"event_type"})

	malformedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "malformed_messages_total",
		Help:      "Messages committed without an export because the envelope or session payload could not be read.",
	}, []string{"topic", "stage"})

	retryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "export_retries_total",
		Help:      "In-place redeliveries of a session event whose export could not reach the native store.",
	}, []string{"topic"})

	committedOffsetGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "committed_offset",
		Help:      "Offset of the last session event committed per topic partition.",
	}, []string{"topic", "partition"})
)

// Malformed message stages.
const (
	stageEnvelope = "envelope"
	stagePayload  = "payload"
)

func init() {
	prometheus.MustRegister(exportOutcomeCounter, ignoredEventCounter, malformedCounter, retryCounter, committedOffsetGauge)
}

func recordExportOutcome(status bridge.Status) {
	exportOutcomeCounter.WithLabelValues(string(status)).Inc()
}

func recordIgnored(eventType string) {
	ignoredEventCounter.WithLabelValues(eventType).Inc()
}

func recordMalformed(topic, stage string) {
	malformedCounter.WithLabelValues(topic, stage).Inc()
}

func recordRetry(topic string) {
	retryCounter.WithLabelValues(topic).Inc()
}

func recordCommitted(topic string, partition int, offset int64) {
	committedOffsetGauge.WithLabelValues(topic, strconv.Itoa(partition)).Set(float64(offset))
}
