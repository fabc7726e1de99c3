package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"alumnireg/internal/notification/metrics"
	"alumnireg/internal/platform/kafka"
)

const headerKind = "notification-kind"

type publisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaPort publishes intents to the notification topic. A consumer group
// running KafkaHandler delivers them.
type KafkaPort struct {
	producer publisher
	metrics  *metrics.Metrics
}

func NewKafkaPort(producer publisher, m *metrics.Metrics) *KafkaPort {
	return &KafkaPort{producer: producer, metrics: m}
}

func (p *KafkaPort) Enqueue(ctx context.Context, intent Intent) error {
	value, err := json.Marshal(intent)
	if err != nil {
		p.metrics.IncrementDropped(string(intent.Kind), "kafka")
		return fmt.Errorf("marshal intent: %w", err)
	}
	// Keyed by recipient so one registrant's messages keep their order.
	if err := p.producer.Publish(ctx, intent.Recipient, value, map[string]string{headerKind: string(intent.Kind)}); err != nil {
		p.metrics.IncrementDropped(string(intent.Kind), "kafka")
		return err
	}
	p.metrics.IncrementEnqueued(string(intent.Kind), "kafka")
	return nil
}

// KafkaHandler decodes consumed intents and hands them to d.
func KafkaHandler(d Deliverer) kafka.HandlerFunc {
	return func(ctx context.Context, msg kafka.Message) error {
		var intent Intent
		if err := json.Unmarshal(msg.Value, &intent); err != nil {
			return fmt.Errorf("decode intent at offset %d: %w", msg.Offset, err)
		}
		return d.Dispatch(ctx, intent)
	}
}
