package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// messageWriter is the slice of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes transition events as JSON messages keyed by the
// dedup key, so a compacted topic keeps one record per edge.
type Kafka struct {
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *Kafka) Send(ctx context.Context, ev domain.TransitionEvent) error {
	if k == nil {
		return fmt.Errorf("kafka disabled")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.DedupKey),
		Value: payload,
	})
}

func (k *Kafka) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}
