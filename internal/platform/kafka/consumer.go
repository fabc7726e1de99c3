package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"alumnireg/internal/platform/config"
)

// Message is a consumed record stripped of client types.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// HandlerFunc processes one message. A returned error is logged; the offset is
// still committed because delivery retries belong to the handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consumer reads the notification topic as part of a consumer group.
type Consumer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewConsumer joins cfg.ConsumerGroup on cfg.NotificationTopic.
func NewConsumer(cfg config.Kafka, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.NotificationTopic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, logger: logger}, nil
}

// Run polls until ctx is cancelled, handing every record to handle and
// committing offsets after each batch.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			msg := Message{
				Topic:     rec.Topic,
				Partition: rec.Partition,
				Offset:    rec.Offset,
				Key:       rec.Key,
				Value:     rec.Value,
				Headers:   make(map[string]string, len(rec.Headers)),
			}
			for _, h := range rec.Headers {
				msg.Headers[h.Key] = string(h.Value)
			}
			if err := handle(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "kafka message handler failed",
					"topic", rec.Topic,
					"offset", rec.Offset,
					"error", err,
				)
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "kafka offset commit failed", "error", err)
		}
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}
