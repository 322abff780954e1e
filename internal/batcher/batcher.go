// Package batcher implements the micro-batching state machine of the
// streaming consumer: accumulate cleaned records, flush when the size or
// time threshold is reached, and drain whatever is left on shutdown.
package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	pkgerrors "github.com/nikhere-creator/brainrocket-data-pipeline/pkg/errors"
)

// FlushFunc hands a whole batch downstream. It must either persist all
// records or fail without partial effects visible to the batcher.
type FlushFunc func(ctx context.Context, records []models.Transaction) error

type Config struct {
	BatchSize            int           // flush when the buffer reaches this many records
	MaxBatchTime         time.Duration // flush a non-empty buffer after this much time since the last flush
	MaxRetries           uint64        // retry attempts per flush before the dead-letter path
	RetryInitialInterval time.Duration // first backoff interval
}

const (
	DefaultBatchSize    = 100
	DefaultMaxBatchTime = 30 * time.Second
)

type Option func(*Batcher)

// WithDeadLetter sets the terminal destination for batches the sink keeps
// refusing. Without it a failed batch stays buffered and the next trigger
// retries.
func WithDeadLetter(dl FlushFunc) Option {
	return func(b *Batcher) { b.deadLetter = dl }
}

// WithClock substitutes the wall clock, making time-trigger tests
// deterministic.
func WithClock(now func() time.Time) Option {
	return func(b *Batcher) { b.now = now }
}

// Batcher is single-owner: the consumer loop is the only caller, so there
// is no internal locking.
type Batcher struct {
	cfg        Config
	flush      FlushFunc
	deadLetter FlushFunc
	logger     *slog.Logger
	now        func() time.Time

	buf       []models.Transaction
	lastFlush time.Time
}

func New(cfg Config, flush FlushFunc, logger *slog.Logger, opts ...Option) *Batcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxBatchTime <= 0 {
		cfg.MaxBatchTime = DefaultMaxBatchTime
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	b := &Batcher{
		cfg:    cfg,
		flush:  flush,
		logger: logger,
		now:    time.Now,
		buf:    make([]models.Transaction, 0, cfg.BatchSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastFlush = b.now()
	return b
}

func (b *Batcher) Len() int {
	return len(b.buf)
}

// Add buffers one record and reports whether a flush was triggered by this
// call, so the caller can reset external timers. A flush error leaves the
// buffer retained (unless dead-lettered) and is safe to log and move past.
func (b *Batcher) Add(ctx context.Context, tx models.Transaction) (bool, error) {
	b.buf = append(b.buf, tx)
	if len(b.buf) >= b.cfg.BatchSize {
		return true, b.flushNow(ctx)
	}
	if b.now().Sub(b.lastFlush) >= b.cfg.MaxBatchTime {
		return true, b.flushNow(ctx)
	}
	return false, nil
}

// Tick flushes on the time trigger alone. Time with an empty buffer never
// flushes.
func (b *Batcher) Tick(ctx context.Context) (bool, error) {
	if len(b.buf) == 0 || b.now().Sub(b.lastFlush) < b.cfg.MaxBatchTime {
		return false, nil
	}
	return true, b.flushNow(ctx)
}

// Flush drains the buffer regardless of thresholds. Mandatory on shutdown.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	return b.flushNow(ctx)
}

func (b *Batcher) flushNow(ctx context.Context) error {
	records := b.buf

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.RetryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, b.cfg.MaxRetries), ctx)

	start := b.now()
	err := backoff.Retry(func() error {
		return b.flush(ctx, records)
	}, policy)

	if err == nil {
		observability.BatchesFlushed.WithLabelValues("success").Inc()
		b.logger.Info("batch flushed", "size", len(records), "took", b.now().Sub(start))
		b.reset()
		return nil
	}

	observability.BatchesFlushed.WithLabelValues("error").Inc()
	if b.deadLetter == nil {
		// Retain the buffer and leave the flush timer alone so the next
		// eligible event retries.
		b.logger.Error("flush failed, retaining buffer", "size", len(records), "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrFlushFailed, err)
	}

	if dlErr := b.deadLetter(ctx, records); dlErr != nil {
		b.logger.Error("dead letter write failed, retaining buffer", "size", len(records), "error", dlErr)
		return fmt.Errorf("%w: %v", pkgerrors.ErrFlushFailed, err)
	}
	observability.BatchesFlushed.WithLabelValues("dead_letter").Inc()
	b.logger.Error("batch dead-lettered after retries", "size", len(records), "error", err)
	b.reset()
	return nil
}

func (b *Batcher) reset() {
	b.buf = b.buf[:0]
	b.lastFlush = b.now()
}
