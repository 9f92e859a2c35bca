package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/trace"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, records ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(records))
	for _, record := range records {
		f.records = append(f.records, record)
		results = append(results, kgo.ProduceResult{Record: record, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() { f.closed = true }

func TestMemoryPublisherRecordsEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	orderID := uuid.New()
	if err := pub.Publish(context.Background(), New(TypeProgressTransitioned, orderID, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(context.Background(), New(TypeOrderDeleted, orderID, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := len(pub.Events()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
	if got := len(pub.OfType(TypeOrderDeleted)); got != 1 {
		t.Fatalf("expected 1 deleted event, got %d", got)
	}
}

func TestKafkaPublisherEncodesEventAndHeaders(t *testing.T) {
	producer := &fakeProducer{}
	pub, err := NewKafkaPublisher(producer, "order-progress", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	orderID := uuid.New()
	event := New(TypeProgressTransitioned, orderID, map[string]any{"status": "completed"})
	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(producer.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(producer.records))
	}
	record := producer.records[0]
	if record.Topic != "order-progress" {
		t.Fatalf("unexpected topic %q", record.Topic)
	}
	if string(record.Key) != orderID.String() {
		t.Fatalf("expected key %s, got %s", orderID, record.Key)
	}

	var decoded Event
	if err := json.Unmarshal(record.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != TypeProgressTransitioned || decoded.Payload["status"] != "completed" {
		t.Fatalf("unexpected payload %+v", decoded)
	}

	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event_type"] != TypeProgressTransitioned {
		t.Fatalf("missing event_type header: %v", headers)
	}
	if headers["traceparent"] != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected traceparent %q", headers["traceparent"])
	}

	pub.Close()
	if !producer.closed {
		t.Fatalf("expected producer to be closed")
	}
}

func TestKafkaPublisherReturnsProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	pub, err := NewKafkaPublisher(producer, "order-progress", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := pub.Publish(context.Background(), New(TypeOrderDeleted, uuid.New(), nil)); err == nil {
		t.Fatalf("expected produce error")
	}
}

func TestNewKafkaPublisherRequiresTopic(t *testing.T) {
	if _, err := NewKafkaPublisher(&fakeProducer{}, " ", nil); !errors.Is(err, ErrKafkaTopicRequired) {
		t.Fatalf("expected ErrKafkaTopicRequired, got %v", err)
	}
	if _, err := NewKafkaClient(KafkaConfig{}); !errors.Is(err, ErrKafkaTopicRequired) {
		t.Fatalf("expected ErrKafkaTopicRequired from client builder, got %v", err)
	}
}
