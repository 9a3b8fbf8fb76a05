package eventsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaSink publishes events to a Kafka topic, one message per turn, keyed
// by evaluation_id so a consumer can preserve per-evaluation ordering.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink builds a KafkaSink from cfg.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("eventsink: at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("eventsink: kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaSink{writer: writer}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventsink: marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.EvaluationID),
		Value: payload,
	}
	return s.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
