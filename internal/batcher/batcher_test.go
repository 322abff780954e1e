package batcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	pkgerrors "github.com/nikhere-creator/brainrocket-data-pipeline/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// captureFlush records every batch it receives and can be told to fail.
type captureFlush struct {
	batches  [][]models.Transaction
	attempts int
	err      error
}

func (f *captureFlush) flush(_ context.Context, records []models.Transaction) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	batch := make([]models.Transaction, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	return nil
}

func record(userID string) models.Transaction {
	return models.Transaction{
		GameID:          1,
		LocationID:      1,
		UserID:          userID,
		Type:            models.TypePurchase,
		Amount:          9.99,
		Currency:        "USD",
		TransactionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Platform:        models.PlatformWeb,
		ItemsPurchased:  1,
	}
}

func TestAdd_SizeTrigger(t *testing.T) {
	sink := &captureFlush{}
	b := New(Config{BatchSize: 3, MaxBatchTime: time.Hour}, sink.flush, testLogger)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		flushed, err := b.Add(ctx, record("user_a"))
		require.NoError(t, err)
		assert.False(t, flushed)
	}

	flushed, err := b.Add(ctx, record("user_b"))
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Zero(t, b.Len())
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
}

func TestTick_TimeTrigger(t *testing.T) {
	clock := newFakeClock()
	sink := &captureFlush{}
	b := New(Config{BatchSize: 100, MaxBatchTime: 30 * time.Second}, sink.flush, testLogger, WithClock(clock.Now))
	ctx := context.Background()

	flushed, err := b.Add(ctx, record("user_a"))
	require.NoError(t, err)
	assert.False(t, flushed)

	clock.Advance(29 * time.Second)
	flushed, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, flushed)

	clock.Advance(time.Second)
	flushed, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Zero(t, b.Len())
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 1)
}

func TestAdd_TimeTriggerOnNextIngest(t *testing.T) {
	clock := newFakeClock()
	sink := &captureFlush{}
	b := New(Config{BatchSize: 100, MaxBatchTime: 30 * time.Second}, sink.flush, testLogger, WithClock(clock.Now))
	ctx := context.Background()

	_, err := b.Add(ctx, record("user_a"))
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	flushed, err := b.Add(ctx, record("user_b"))
	require.NoError(t, err)
	assert.True(t, flushed)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 2)
}

func TestTick_EmptyBufferNeverFlushes(t *testing.T) {
	clock := newFakeClock()
	sink := &captureFlush{}
	b := New(Config{BatchSize: 100, MaxBatchTime: 30 * time.Second}, sink.flush, testLogger, WithClock(clock.Now))

	clock.Advance(time.Hour)
	flushed, err := b.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, flushed)
	assert.Zero(t, sink.attempts)
}

func TestFlush_DrainOnClose(t *testing.T) {
	sink := &captureFlush{}
	b := New(Config{BatchSize: 10, MaxBatchTime: time.Hour}, sink.flush, testLogger)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		_, err := b.Add(ctx, record("user_a"))
		require.NoError(t, err)
	}

	require.NoError(t, b.Flush(ctx))
	assert.Zero(t, b.Len())
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 9)

	// Empty drain is a no-op.
	require.NoError(t, b.Flush(ctx))
	assert.Len(t, sink.batches, 1)
}

func TestFlush_RetainsBufferOnFailure(t *testing.T) {
	clock := newFakeClock()
	sink := &captureFlush{err: errors.New("connection refused")}
	b := New(
		Config{BatchSize: 2, MaxBatchTime: 30 * time.Second, MaxRetries: 1, RetryInitialInterval: time.Millisecond},
		sink.flush, testLogger, WithClock(clock.Now),
	)
	ctx := context.Background()

	_, err := b.Add(ctx, record("user_a"))
	require.NoError(t, err)

	flushed, err := b.Add(ctx, record("user_b"))
	assert.True(t, flushed)
	assert.ErrorIs(t, err, pkgerrors.ErrFlushFailed)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, sink.attempts) // initial try + one retry

	// Sink recovers: the retained batch goes out on the next trigger.
	sink.err = nil
	flushed, err = b.Add(ctx, record("user_c"))
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Zero(t, b.Len())
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
}

func TestFlush_TimerNotResetOnFailure(t *testing.T) {
	clock := newFakeClock()
	sink := &captureFlush{err: errors.New("connection refused")}
	b := New(
		Config{BatchSize: 100, MaxBatchTime: 30 * time.Second, MaxRetries: 0, RetryInitialInterval: time.Millisecond},
		sink.flush, testLogger, WithClock(clock.Now),
	)
	ctx := context.Background()

	_, err := b.Add(ctx, record("user_a"))
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	flushed, err := b.Tick(ctx)
	assert.True(t, flushed)
	assert.ErrorIs(t, err, pkgerrors.ErrFlushFailed)

	// Timer was not reset: the very next tick retries immediately.
	sink.err = nil
	flushed, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Zero(t, b.Len())
}

func TestFlush_DeadLetterAfterRetryExhaustion(t *testing.T) {
	sink := &captureFlush{err: errors.New("connection refused")}
	dead := &captureFlush{}
	b := New(
		Config{BatchSize: 2, MaxBatchTime: time.Hour, MaxRetries: 2, RetryInitialInterval: time.Millisecond},
		sink.flush, testLogger, WithDeadLetter(dead.flush),
	)
	ctx := context.Background()

	_, err := b.Add(ctx, record("user_a"))
	require.NoError(t, err)
	flushed, err := b.Add(ctx, record("user_b"))
	assert.True(t, flushed)
	require.NoError(t, err) // terminally handled, the stream moves on

	assert.Equal(t, 3, sink.attempts)
	assert.Zero(t, b.Len())
	require.Len(t, dead.batches, 1)
	assert.Len(t, dead.batches[0], 2)
}

func TestFlush_RetainsBufferWhenDeadLetterFails(t *testing.T) {
	sink := &captureFlush{err: errors.New("connection refused")}
	dead := &captureFlush{err: errors.New("disk full")}
	b := New(
		Config{BatchSize: 1, MaxBatchTime: time.Hour, MaxRetries: 0, RetryInitialInterval: time.Millisecond},
		sink.flush, testLogger, WithDeadLetter(dead.flush),
	)

	flushed, err := b.Add(context.Background(), record("user_a"))
	assert.True(t, flushed)
	assert.ErrorIs(t, err, pkgerrors.ErrFlushFailed)
	assert.Equal(t, 1, b.Len())
}
