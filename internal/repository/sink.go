package repository

import (
	"context"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
)

type WriteMode string

const (
	// Append adds records to the fact table.
	Append WriteMode = "append"
	// Replace truncates before writing. Reserved for one-shot batch re-loads.
	Replace WriteMode = "replace"
)

// Sink is the persistence contract both pipeline paths converge on.
type Sink interface {
	// Load writes a batch atomically and returns the number of rows written.
	Load(ctx context.Context, records []models.Transaction, mode WriteMode) (int64, error)
	// RefreshAggregate recomputes the derived aggregate view. Its failure is
	// independent of a preceding successful Load.
	RefreshAggregate(ctx context.Context) error
}
