// Package consumer drives the export pipeline from Kafka session events.
package consumer

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a Kafka record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	Key       string
	// SchemaID is set when the value used the Confluent wire format.
	SchemaID int
	Payload  json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRetryDelay sets the pause after a fetch error and before the first handler retry.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Processor) { p.retryDelay = d }
}

// WithMaxRetryDelay caps the doubling backoff between handler retries.
func WithMaxRetryDelay(d time.Duration) Option {
	return func(p *Processor) { p.maxRetryDelay = d }
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
// Malformed messages are committed. A message whose handler fails is retried in
// place with backoff and the next message is not fetched until it succeeds, so a
// later commit can never move the partition offset past it.
type Processor struct {
	reader        Reader
	handler       Handler
	logger        *slog.Logger
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:        reader,
		handler:       handler,
		logger:        slog.Default().With(slog.String("component", "consumer")),
		retryDelay:    time.Second,
		maxRetryDelay: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.ErrorContext(ctx, "fetch error", slog.Any("error", err))
			if !sleep(ctx, p.retryDelay) {
				return ctx.Err()
			}
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.WarnContext(ctx, "decode error",
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", decodeErr),
			)
			recordMalformed(msg.Topic, stageEnvelope)
			p.commit(ctx, msg)
			continue
		}

		if !p.handle(ctx, event) {
			return ctx.Err()
		}
		p.commit(ctx, msg)
	}
}

// handle runs the handler on event until it succeeds, doubling the pause between
// attempts up to maxRetryDelay. It reports false when ctx ends first; the message
// stays uncommitted and is redelivered to the next group member.
func (p *Processor) handle(ctx context.Context, event Message) bool {
	delay := p.retryDelay
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return true
		}
		p.logger.ErrorContext(ctx, "handler error, retrying message",
			slog.String("event_type", event.EventType),
			slog.String("key", event.Key),
			slog.Int("partition", event.Partition),
			slog.Int64("offset", event.Offset),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		if ctx.Err() != nil || !sleep(ctx, delay) {
			return false
		}
		recordRetry(event.Topic)
		delay = nextDelay(delay, p.maxRetryDelay)
	}
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message) {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "commit error",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err),
		)
		return
	}
	recordCommitted(msg.Topic, msg.Partition, msg.Offset)
}

func nextDelay(current, limit time.Duration) time.Duration {
	next := current * 2
	if limit > 0 && next > limit {
		return limit
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// decodeMessage accepts plain JSON values and values framed with the Confluent
// five-byte header (magic byte 0, big-endian schema id).
func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok || len(eventType) == 0 {
		return Message{}, errors.New("missing event_type header")
	}

	value := msg.Value
	schemaID := 0
	if len(value) > 0 && value[0] == 0 {
		if len(value) < 5 {
			return Message{}, fmt.Errorf("invalid framed payload length: %d", len(value))
		}
		schemaID = int(binary.BigEndian.Uint32(value[1:5]))
		value = value[5:]
	}
	value = bytes.TrimSpace(value)
	if !json.Valid(value) {
		return Message{}, errors.New("payload is not valid JSON")
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		Key:       string(msg.Key),
		SchemaID:  schemaID,
		Payload:   json.RawMessage(append([]byte(nil), value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
