package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/propagation"

	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

const traceparentHeader = "traceparent"

var ErrKafkaTopicRequired = errors.New("events: kafka topic required")

// Producer is the subset of *kgo.Client used by KafkaPublisher.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaConfig describes the broker connection for NewKafkaClient.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewKafkaClient builds a franz-go client producing to cfg.Topic by default.
func NewKafkaClient(cfg KafkaConfig) (*kgo.Client, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrKafkaTopicRequired
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProduceRequestTimeout(10 * time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	return kgo.NewClient(opts...)
}

// KafkaPublisher publishes JSON encoded events keyed by order id.
type KafkaPublisher struct {
	producer Producer
	topic    string
	logger   interfaces.Logger
}

// NewKafkaPublisher wraps a producer.
func NewKafkaPublisher(producer Producer, topic string, logger interfaces.Logger) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, errors.New("events: kafka producer required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, ErrKafkaTopicRequired
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", event.Type, err)
	}
	record := &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(event.Key()),
		Value:   data,
		Headers: traceHeaders(ctx, event.Type),
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Error("events.kafka.publish_failed", "type", event.Type, "topic", p.topic, "error", err)
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	p.logger.Debug("events.kafka.published", "type", event.Type, "topic", p.topic)
	return nil
}

// Close releases the underlying client.
func (p *KafkaPublisher) Close() {
	p.producer.Close()
}

func traceHeaders(ctx context.Context, eventType string) []kgo.RecordHeader {
	headers := []kgo.RecordHeader{{Key: "event_type", Value: []byte(eventType)}}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	if traceparent, ok := carrier[traceparentHeader]; ok {
		headers = append(headers, kgo.RecordHeader{Key: traceparentHeader, Value: []byte(traceparent)})
	}
	return headers
}
