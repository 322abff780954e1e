// Package consumer runs the streaming ingestion path: read one event per
// line (or per Kafka message), normalize it through the shared validation
// core, micro-batch it, and drain on shutdown. Malformed input is logged and
// skipped; the stream never crashes on a bad event.
package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/batcher"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/redis"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/validate"
)

// Source yields one event payload per call and io.EOF at end of stream.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// drainTimeout bounds the final flush once the input is gone; the parent
// context is usually already cancelled by then.
const drainTimeout = 30 * time.Second

type Option func(*Consumer)

// WithDedup enables event-ID duplicate suppression, turning the pipe's
// at-least-once delivery into effectively-once for events that carry an id.
func WithDedup(client redis.DedupClient, ttl time.Duration) Option {
	return func(c *Consumer) {
		c.dedup = client
		c.dedupTTL = ttl
	}
}

type Consumer struct {
	source   Source
	batcher  *batcher.Batcher
	logger   *slog.Logger
	dedup    redis.DedupClient
	dedupTTL time.Duration

	tickInterval time.Duration
	accepted     int
	rejected     int
	duplicates   int
}

func New(source Source, b *batcher.Batcher, tickInterval time.Duration, logger *slog.Logger, opts ...Option) *Consumer {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	c := &Consumer{
		source:       source,
		batcher:      b,
		logger:       logger,
		tickInterval: tickInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats reports accepted and rejected event counts so far.
func (c *Consumer) Stats() (accepted, rejected int) {
	return c.accepted, c.rejected
}

// Run consumes until the source ends or ctx is cancelled, then drains the
// remaining buffer. Row-level problems are logged and skipped; only a drain
// that cannot be completed is returned as an error.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", "tick_interval", c.tickInterval, "dedup_enabled", c.dedup != nil)

	lines := make(chan []byte)
	go c.readLoop(ctx, lines)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-lines:
			if !ok {
				return c.drain()
			}
			c.handle(ctx, data)

		case <-ticker.C:
			if _, err := c.batcher.Tick(ctx); err != nil {
				c.logger.Error("time-triggered flush failed", "buffered", c.batcher.Len(), "error", err)
			}

		case <-ctx.Done():
			return c.drain()
		}
	}
}

func (c *Consumer) readLoop(ctx context.Context, lines chan<- []byte) {
	defer close(lines)
	for {
		data, err := c.source.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				c.logger.Error("stream read failed", "error", err)
			}
			return
		}
		select {
		case lines <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte) {
	var raw validate.Raw
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		c.rejected++
		observability.EventsRejected.WithLabelValues("malformed_json").Inc()
		c.logger.Warn("skipping malformed line", "error", err)
		return
	}

	if c.dedup != nil {
		if id, ok := raw["event_id"].(string); ok && id != "" {
			first, err := c.dedup.FirstSeen(ctx, id, c.dedupTTL)
			if err != nil {
				c.logger.Warn("dedup check failed, processing event anyway", "event_id", id, "error", err)
			} else if !first {
				c.duplicates++
				observability.EventsDeduplicated.Inc()
				c.logger.Info("duplicate event skipped", "event_id", id)
				return
			}
		}
	}

	tx, err := validate.Clean(raw)
	if err != nil {
		c.rejected++
		observability.EventsRejected.WithLabelValues("invalid").Inc()
		c.logger.Warn("event rejected", "reason", err)
		return
	}

	c.accepted++
	flushed, err := c.batcher.Add(ctx, *tx)
	if err != nil {
		c.logger.Error("flush failed, batch retained", "buffered", c.batcher.Len(), "error", err)
	} else if flushed {
		c.logger.Debug("batch flushed", "accepted_total", c.accepted)
	}
}

// drain performs the mandatory last-batch-on-close flush with its own
// deadline, independent of the (possibly cancelled) run context.
func (c *Consumer) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	err := c.batcher.Flush(ctx)
	c.logger.Info("consumer shutdown complete",
		"accepted", c.accepted,
		"rejected", c.rejected,
		"duplicates", c.duplicates,
		"unflushed", c.batcher.Len())
	return err
}
