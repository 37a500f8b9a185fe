package redpanda

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConsumerConfig holds configuration for the Redpanda consumer.
type ConsumerConfig struct {
	Brokers             []string
	GroupID             string
	Topics              []string
	SessionTimeoutMS    int64
	HeartbeatIntervalMS int64
	FetchMaxBytes       int32
	StartOffset         string // earliest | latest
	// MaxAttempts is how many deliveries a message gets before it is
	// dead lettered. Zero means retry forever.
	MaxAttempts int
}

// DefaultConsumerConfig returns defaults for the task worker group.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers:             []string{"localhost:9092"},
		GroupID:             "authorization-worker",
		SessionTimeoutMS:    30000,
		HeartbeatIntervalMS: 3000,
		FetchMaxBytes:       52428800,
		StartOffset:         "earliest",
		MaxAttempts:         5,
	}
}

// MessageHandler is called for each consumed message.
type MessageHandler func(ctx context.Context, msg *ConsumedMessage) error

// ConsumedMessage represents a consumed message.
type ConsumedMessage struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Attempt   int
}

// Consumer consumes authorization topics with manual commits: an offset is
// committed only after the handler succeeds or the message is dead
// lettered, so no message is silently dropped.
type Consumer struct {
	client     *kgo.Client
	config     ConsumerConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	handler    MessageHandler
	deadLetter *Producer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a new consumer. The producer is used for dead
// lettering and may be nil, in which case failed messages are retried
// indefinitely.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, deadLetter *Producer, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handler == nil {
		return nil, errors.New("message handler is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.SessionTimeout(time.Duration(cfg.SessionTimeoutMS) * time.Millisecond),
		kgo.HeartbeatInterval(time.Duration(cfg.HeartbeatIntervalMS) * time.Millisecond),
		kgo.FetchMaxBytes(cfg.FetchMaxBytes),
		kgo.DisableAutoCommit(),
	}

	switch cfg.StartOffset {
	case "latest":
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()))
	default:
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}

	opts = append(opts,
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			logger.Info("partitions assigned", zap.Any("partitions", assigned))
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
			logger.Info("partitions revoked", zap.Any("partitions", revoked))
		}),
	)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		client:     client,
		config:     cfg,
		logger:     logger,
		tracer:     otel.Tracer("redpanda-consumer"),
		handler:    handler,
		deadLetter: deadLetter,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins consuming messages.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go c.consumeLoop()
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
		c.logger.Warn("error committing offsets on stop", zap.Error(err))
	}
	c.client.Close()
	return nil
}

func (c *Consumer) consumeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		fetches := c.client.PollFetches(c.ctx)
		if fetches.IsClientClosed() {
			return
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				c.logger.Error("fetch error",
					zap.String("topic", err.Topic),
					zap.Int32("partition", err.Partition),
					zap.Error(err.Err))
			}
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			c.processRecord(record)
		})
	}
}

func (c *Consumer) processRecord(record *kgo.Record) {
	ctx, span := c.tracer.Start(c.ctx, "process_message",
		trace.WithAttributes(
			attribute.String("topic", record.Topic),
			attribute.Int64("partition", int64(record.Partition)),
			attribute.Int64("offset", record.Offset),
		))
	defer span.End()

	msg := &ConsumedMessage{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Headers:   make(map[string]string),
		Timestamp: record.Timestamp,
		Attempt:   1,
	}
	for _, h := range record.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	if raw, ok := msg.Headers["delivery-attempt"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			msg.Attempt = n
		}
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("message handler failed",
			zap.String("topic", record.Topic),
			zap.Int64("offset", record.Offset),
			zap.Int("attempt", msg.Attempt),
			zap.Error(err))
		span.RecordError(err)

		if c.config.MaxAttempts > 0 && msg.Attempt >= c.config.MaxAttempts && c.deadLetter != nil {
			if dlErr := c.deadLetter.DeadLetter(ctx, record.Topic, string(record.Key), record.Value, err.Error()); dlErr != nil {
				c.logger.Error("dead letter failed", zap.Error(dlErr))
				return // leave uncommitted, redeliver
			}
		} else if c.requeue(ctx, record, msg.Attempt+1) != nil {
			return // leave uncommitted, redeliver
		}
	}

	c.client.MarkCommitRecords(record)
	if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
		c.logger.Error("failed to commit offset",
			zap.String("topic", record.Topic),
			zap.Int64("offset", record.Offset),
			zap.Error(err))
		span.RecordError(err)
	}
}

// requeue republishes a failed message to its own topic with the attempt
// counter bumped, letting the group move past a poison-adjacent message
// without busy looping on it.
func (c *Consumer) requeue(ctx context.Context, record *kgo.Record, attempt int) error {
	if c.deadLetter == nil {
		return errors.New("no producer for requeue")
	}

	headers := []kgo.RecordHeader{
		{Key: "delivery-attempt", Value: []byte(strconv.Itoa(attempt))},
	}
	for _, h := range record.Headers {
		if h.Key != "delivery-attempt" {
			headers = append(headers, h)
		}
	}

	retry := &kgo.Record{
		Topic:   record.Topic,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)
	c.deadLetter.client.Produce(ctx, retry, func(_ *kgo.Record, err error) {
		defer wg.Done()
		produceErr = err
	})
	wg.Wait()
	return produceErr
}

// CommitOffsets manually commits current offsets.
func (c *Consumer) CommitOffsets(ctx context.Context) error {
	if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
		return fmt.Errorf("failed to commit offsets: %w", err)
	}
	return nil
}
