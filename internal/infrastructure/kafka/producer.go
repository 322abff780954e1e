package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Producer publishes transaction events to a single topic. Writes are
// synchronous so delivery failures surface to the event source instead of
// being dropped silently.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, logger: logger}
}

func (p *Producer) Send(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send event", "topic", p.writer.Topic, "key", key, "error", err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close Kafka writer", "error", err)
		return err
	}
	p.logger.Info("Kafka writer closed")
	return nil
}
