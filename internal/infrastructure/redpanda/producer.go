package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/claimspring/go-pax/internal/domain/authorization"
)

// ProducerConfig holds configuration for the Redpanda producer.
type ProducerConfig struct {
	Brokers            []string
	BatchMaxBytes      int32
	LingerMS           int64
	MaxBufferedRecords int
	Compression        string
	MaxRetries         int
	RetryBackoffMS     int64
}

// DefaultProducerConfig returns defaults tuned for steady authorization
// event traffic. Durability over latency: all in-sync replicas must ack.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:            []string{"localhost:9092"},
		BatchMaxBytes:      4 * 1024 * 1024,
		LingerMS:           25,
		MaxBufferedRecords: 100_000,
		Compression:        "lz4",
		MaxRetries:         3,
		RetryBackoffMS:     100,
	}
}

// Producer publishes authorization events and EDI payloads to Redpanda.
type Producer struct {
	client *kgo.Client
	logger *zap.Logger
	tracer trace.Tracer
}

// NewProducer creates a new producer.
func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchMaxBytes(cfg.BatchMaxBytes),
		kgo.ProducerLinger(time.Duration(cfg.LingerMS) * time.Millisecond),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecords),
		kgo.RecordRetries(cfg.MaxRetries),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RetryBackoffFn(func(attempt int) time.Duration {
			return time.Duration(cfg.RetryBackoffMS) * time.Millisecond * time.Duration(attempt+1)
		}),
	}

	switch cfg.Compression {
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger,
		tracer: otel.Tracer("redpanda-producer"),
	}, nil
}

// Produce sends one message and waits for the broker acknowledgment.
func (p *Producer) Produce(ctx context.Context, topic, key string, value []byte) error {
	ctx, span := p.tracer.Start(ctx, "produce_message",
		trace.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("key", key),
			attribute.Int("value_size", len(value)),
		))
	defer span.End()

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	injectTraceHeaders(ctx, record)

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)

	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer wg.Done()
		if err != nil {
			produceErr = err
			p.logger.Error("failed to produce message",
				zap.String("topic", topic),
				zap.String("key", key),
				zap.Error(err))
			span.RecordError(err)
			return
		}
		p.logger.Debug("message produced",
			zap.String("topic", r.Topic),
			zap.Int32("partition", r.Partition),
			zap.Int64("offset", r.Offset))
	})

	wg.Wait()
	return produceErr
}

// PublishEvent publishes a domain event to the authorization events topic,
// keyed by aggregate so per-authorization ordering holds.
func (p *Producer) PublishEvent(ctx context.Context, event *authorization.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.Produce(ctx, TopicAuthorizationEvents, event.AggregateID, payload)
}

// PublishAudit mirrors an event onto the audit trail topic.
func (p *Producer) PublishAudit(ctx context.Context, event *authorization.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.Produce(ctx, TopicAuditTrail, event.AggregateID, payload)
}

// PublishEDI sends a raw X12 interchange keyed by its interchange control
// number.
func (p *Producer) PublishEDI(ctx context.Context, topic, controlNumber string, wire []byte) error {
	return p.Produce(ctx, topic, controlNumber, wire)
}

// DeadLetter parks an unprocessable message with its origin and reason in
// headers.
func (p *Producer) DeadLetter(ctx context.Context, originTopic, key string, value []byte, reason string) error {
	ctx, span := p.tracer.Start(ctx, "dead_letter",
		trace.WithAttributes(attribute.String("origin_topic", originTopic)))
	defer span.End()

	record := &kgo.Record{
		Topic: TopicDeadLetter,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "origin-topic", Value: []byte(originTopic)},
			{Key: "reason", Value: []byte(reason)},
		},
	}
	injectTraceHeaders(ctx, record)

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		defer wg.Done()
		produceErr = err
	})
	wg.Wait()

	if produceErr != nil {
		return fmt.Errorf("dead letter produce: %w", produceErr)
	}
	p.logger.Warn("message dead lettered",
		zap.String("origin_topic", originTopic),
		zap.String("key", key),
		zap.String("reason", reason))
	return nil
}

// Flush blocks until all buffered records are sent.
func (p *Producer) Flush(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *Producer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("error flushing on close", zap.Error(err))
	}
	p.client.Close()
	return nil
}

// injectTraceHeaders adds W3C trace context to record headers.
func injectTraceHeaders(ctx context.Context, record *kgo.Record) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	sc := span.SpanContext()
	record.Headers = append(record.Headers,
		kgo.RecordHeader{Key: "traceparent", Value: []byte(fmt.Sprintf("00-%s-%s-%02x",
			sc.TraceID().String(),
			sc.SpanID().String(),
			sc.TraceFlags()))},
	)
}
