package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/healthsync/internal/bridge"
	"example.com/healthsync/internal/domain"
	"example.com/healthsync/internal/events"
)

func framed(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func sessionMessage(value []byte) kafka.Message {
	return kafka.Message{
		Topic:     "workout_sessions",
		Partition: 0,
		Offset:    10,
		Key:       []byte("session-1"),
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.EventWorkoutSessionCompleted)},
		},
	}
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := []byte(`{"session_id":"session-1"}`)
	reader := &stubReader{messages: []kafka.Message{sessionMessage(framed(42, payload))}}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))
	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.EventWorkoutSessionCompleted, handler.last.EventType)
	require.Equal(t, "session-1", handler.last.Key)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorAcceptsPlainJSON(t *testing.T) {
	payload := []byte(`{"session_id":"session-2"}`)
	reader := &stubReader{messages: []kafka.Message{sessionMessage(payload)}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
	require.Equal(t, 1, reader.commitCalls)
}

func TestProcessorRetriesFailedMessageInPlace(t *testing.T) {
	failed := sessionMessage([]byte(`{"session_id":"session-5"}`))
	failed.Offset = 5
	next := sessionMessage([]byte(`{"session_id":"session-6"}`))
	next.Offset = 6

	reader := &stubReader{messages: []kafka.Message{failed, next}}
	handler := &stubHandler{errs: []error{ErrExportUnavailable}}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t)), WithRetryDelay(time.Millisecond)).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []int64{5, 5, 6}, handler.offsets)
	require.Equal(t, []int64{5, 6}, reader.committed)
}

func TestProcessorLeavesMessageUncommittedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{messages: []kafka.Message{sessionMessage([]byte(`{}`))}}
	handler := &stubHandler{err: errors.New("boom")}
	handler.onCall = func(calls int) {
		if calls == 3 {
			cancel()
		}
	}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t)), WithRetryDelay(0)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.index, "no further message is fetched while one is failing")
	require.Equal(t, 0, reader.commitCalls)
}

func TestNextDelayDoublesUpToLimit(t *testing.T) {
	require.Equal(t, 2*time.Second, nextDelay(time.Second, time.Minute))
	require.Equal(t, time.Minute, nextDelay(40*time.Second, time.Minute))
	require.Equal(t, time.Duration(0), nextDelay(0, time.Minute))
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	noHeader := sessionMessage([]byte(`{}`))
	noHeader.Headers = nil
	short := sessionMessage([]byte{0, 1})
	notJSON := sessionMessage([]byte("session finished"))

	reader := &stubReader{messages: []kafka.Message{noHeader, short, notJSON}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
}

func TestProcessorRetriesAfterFetchError(t *testing.T) {
	reader := &stubReader{
		fetchErrs: []error{errors.New("broker unreachable")},
		messages:  []kafka.Message{sessionMessage([]byte(`{}`))},
	}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(testLogger(t)), WithRetryDelay(0)).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
}

type stubExporter struct {
	out  bridge.Outcome
	reqs []bridge.ExportRequest
}

func (s *stubExporter) Export(_ context.Context, req bridge.ExportRequest) bridge.Outcome {
	s.reqs = append(s.reqs, req)
	return s.out
}

func TestExportHandlerRunsExport(t *testing.T) {
	exp := &stubExporter{out: bridge.Outcome{Status: bridge.StatusExported}}
	handler := NewExportHandler(exp, domain.Preferences{})
	before := testutil.ToFloat64(exportOutcomeCounter.WithLabelValues(string(bridge.StatusExported)))

	err := handler.Handle(context.Background(), Message{
		EventType: events.EventWorkoutSessionCompleted,
		Payload:   []byte(`{"session_id":"s-1","name":"Morning Ride","started_at":"2026-03-10T07:00:00Z","finished_at":"2026-03-10T08:00:00Z","energy_kcal":480}`),
	})
	require.NoError(t, err)
	require.Len(t, exp.reqs, 1)
	req := exp.reqs[0]
	require.Equal(t, "s-1", req.SessionID)
	require.Equal(t, "Morning Ride", req.Name)
	require.True(t, req.Enabled)
	require.Equal(t, 480.0, *req.EnergyKcal)
	require.Equal(t, before+1, testutil.ToFloat64(exportOutcomeCounter.WithLabelValues(string(bridge.StatusExported))))
}

func TestExportHandlerReturnsErrorWhenUnavailable(t *testing.T) {
	exp := &stubExporter{out: bridge.Outcome{Status: bridge.StatusUnavailable, Reason: "native store offline"}}
	handler := NewExportHandler(exp, domain.Preferences{})

	err := handler.Handle(context.Background(), Message{EventType: events.EventWorkoutSessionCompleted, Payload: []byte(`{"session_id":"s-1"}`)})
	require.ErrorIs(t, err, ErrExportUnavailable)
}

func TestExportHandlerAcknowledgesTerminalOutcomes(t *testing.T) {
	for _, status := range []bridge.Status{bridge.StatusSkipped, bridge.StatusDisabled, bridge.StatusDenied} {
		exp := &stubExporter{out: bridge.Outcome{Status: status}}
		err := NewExportHandler(exp, domain.Preferences{}).Handle(context.Background(), Message{
			EventType: events.EventWorkoutSessionCompleted,
			Payload:   []byte(`{"session_id":"s-1"}`),
		})
		require.NoError(t, err, string(status))
	}
}

func TestExportHandlerIgnoresOtherEvents(t *testing.T) {
	exp := &stubExporter{}
	handler := NewExportHandler(exp, domain.Preferences{})
	ignored := testutil.ToFloat64(ignoredEventCounter.WithLabelValues("workout_session_started"))
	malformed := testutil.ToFloat64(malformedCounter.WithLabelValues("workout_sessions", stagePayload))

	require.NoError(t, handler.Handle(context.Background(), Message{EventType: "workout_session_started", Payload: []byte(`{}`)}))
	require.NoError(t, handler.Handle(context.Background(), Message{Topic: "workout_sessions", EventType: events.EventWorkoutSessionCompleted, Payload: []byte(`[1,2]`)}))
	require.Empty(t, exp.reqs)
	require.Equal(t, ignored+1, testutil.ToFloat64(ignoredEventCounter.WithLabelValues("workout_session_started")))
	require.Equal(t, malformed+1, testutil.ToFloat64(malformedCounter.WithLabelValues("workout_sessions", stagePayload)))
}

type stubReader struct {
	fetchErrs   []error
	messages    []kafka.Message
	index       int
	commitCalls int
	committed   []int64
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.commitCalls++
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *stubReader) Close() error { return nil }

// stubHandler returns queued errs first, then err.
type stubHandler struct {
	calls   int
	errs    []error
	err     error
	last    Message
	offsets []int64
	onCall  func(calls int)
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	h.offsets = append(h.offsets, msg.Offset)
	if h.onCall != nil {
		h.onCall(h.calls)
	}
	if len(h.errs) > 0 {
		err := h.errs[0]
		h.errs = h.errs[1:]
		return err
	}
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, nil))
}
