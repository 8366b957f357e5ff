package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/healthsync/internal/bridge"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// OutcomePublisher emits a SyncOutcome event for every observed run. Publish
// failures are logged and never change the outcome.
type OutcomePublisher struct {
	writer  messageWriter
	topic   string
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewOutcomePublisher constructs an OutcomePublisher.
func NewOutcomePublisher(writer messageWriter, topic string, logger *slog.Logger) *OutcomePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomePublisher{writer: writer, topic: topic, logger: logger, timeout: 5 * time.Second, now: time.Now}
}

// Observe implements bridge.Observer.
func (p *OutcomePublisher) Observe(ctx context.Context, out bridge.Outcome) {
	if err := p.Publish(ctx, out); err != nil {
		p.logger.WarnContext(ctx, "publish sync outcome failed",
			slog.String("run_id", out.RunID),
			slog.String("topic", p.topic),
			slog.Any("error", err),
		)
	}
}

// Publish writes one outcome event keyed by run id.
func (p *OutcomePublisher) Publish(ctx context.Context, out bridge.Outcome) error {
	event := SyncOutcome{
		EventID:    uuid.NewString(),
		RunID:      out.RunID,
		Pipeline:   out.Pipeline,
		Status:     string(out.Status),
		Reason:     out.Reason,
		SessionID:  out.SessionID,
		Fetched:    out.Fetched,
		Imported:   out.Imported,
		Skipped:    out.Skipped,
		OccurredAt: p.now().UTC(),
	}
	if out.Err != nil {
		event.Error = out.Err.Error()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sync outcome: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, p.topic, kafka.Message{
		Key:   []byte(out.RunID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventHealthSyncOutcome)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
}
