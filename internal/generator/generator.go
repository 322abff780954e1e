// Package generator is the synthetic event source driving the demo:
// bounded record batches for the CSV path and a paced, cancellable event
// stream for the producer.
package generator

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	"golang.org/x/time/rate"
)

// Reference set sizes, matching the seeded dim_games / dim_locations rows.
const (
	numGames     = 10
	numLocations = 15
)

type Generator struct {
	rnd    *rand.Rand
	now    func() time.Time
	logger *slog.Logger
}

func New(logger *slog.Logger) *Generator {
	return &Generator{
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: logger,
	}
}

// Transaction produces one batch record with a date uniform over the last
// 30 days.
func (g *Generator) Transaction() models.Transaction {
	txType := g.transactionType()
	offset := time.Duration(g.rnd.Int63n(int64(30 * 24 * time.Hour)))
	return models.Transaction{
		GameID:          1 + g.rnd.Intn(numGames),
		LocationID:      1 + g.rnd.Intn(numLocations),
		UserID:          "user_" + uuid.NewString()[:8],
		Type:            txType,
		Amount:          g.amount(txType),
		Currency:        "USD",
		TransactionDate: g.now().UTC().Add(-offset).Truncate(time.Second),
		Platform:        models.Platforms[g.rnd.Intn(len(models.Platforms))],
		SessionDuration: g.sessionDuration(),
		ItemsPurchased:  g.itemsPurchased(txType),
	}
}

func (g *Generator) Transactions(n int) []models.Transaction {
	g.logger.Info("generating synthetic gaming transactions", "count", n)
	out := make([]models.Transaction, n)
	for i := range out {
		out[i] = g.Transaction()
	}
	return out
}

// Event produces one streaming event stamped with the current time.
func (g *Generator) Event() models.Event {
	txType := g.transactionType()
	now := g.now().UTC().Format(time.RFC3339)
	return models.Event{
		EventID:         uuid.NewString(),
		GameID:          1 + g.rnd.Intn(numGames),
		LocationID:      1 + g.rnd.Intn(numLocations),
		UserID:          "user_" + uuid.NewString()[:8],
		Type:            txType,
		Amount:          g.amount(txType),
		Currency:        "USD",
		TransactionDate: now,
		Platform:        models.Platforms[g.rnd.Intn(len(models.Platforms))],
		SessionDuration: g.sessionDuration(),
		ItemsPurchased:  g.itemsPurchased(txType),
		EventTimestamp:  now,
		Source:          "stream_producer",
	}
}

type EmitFunc func(models.Event) error

// Stream emits events until maxEvents is reached (0 or negative means
// unbounded) or the context is cancelled. eventsPerSec > 0 paces emission
// at 1/rate between events; anything else is burst mode. Cancellation never
// cuts an event in half: the context is only consulted between emissions.
func (g *Generator) Stream(ctx context.Context, eventsPerSec float64, maxEvents int, emit EmitFunc) (int, error) {
	var limiter *rate.Limiter
	if eventsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(eventsPerSec), 1)
	}

	count := 0
	for maxEvents <= 0 || count < maxEvents {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				g.logger.Info("producer stopped", "events", count)
				return count, nil
			}
		} else {
			select {
			case <-ctx.Done():
				g.logger.Info("producer stopped", "events", count)
				return count, nil
			default:
			}
		}

		if err := emit(g.Event()); err != nil {
			return count, err
		}
		count++
		if count%10 == 0 {
			g.logger.Info("produced events", "count", count)
		}
	}
	return count, nil
}

// 30% purchase, 50% in-game, 20% subscription.
func (g *Generator) transactionType() models.TransactionType {
	switch r := g.rnd.Float64(); {
	case r < 0.3:
		return models.TypePurchase
	case r < 0.8:
		return models.TypeInGame
	default:
		return models.TypeSubscription
	}
}

func (g *Generator) amount(t models.TransactionType) float64 {
	var lo, hi float64
	switch t {
	case models.TypePurchase:
		lo, hi = 4.99, 99.99
	case models.TypeInGame:
		lo, hi = 0.99, 49.99
	default:
		lo, hi = 9.99, 29.99
	}
	return math.Round((lo+g.rnd.Float64()*(hi-lo))*100) / 100
}

// Present with probability 0.7, uniform in [5,180] seconds.
func (g *Generator) sessionDuration() *int {
	if g.rnd.Float64() <= 0.3 {
		return nil
	}
	d := 5 + g.rnd.Intn(176)
	return &d
}

func (g *Generator) itemsPurchased(t models.TransactionType) int {
	if t == models.TypeSubscription {
		return 1
	}
	return 1 + g.rnd.Intn(5)
}
