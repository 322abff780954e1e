package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader adapts a Kafka consumer group to the streaming consumer's Source
// contract: one event payload per Read.
type Reader struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	return &Reader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		logger: logger,
	}
}

func (r *Reader) Read(ctx context.Context) ([]byte, error) {
	msg, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.logger.Error("failed to close Kafka reader", "error", err)
		return err
	}
	r.logger.Info("Kafka reader closed")
	return nil
}
