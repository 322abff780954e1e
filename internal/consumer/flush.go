package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/batcher"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository"
)

// SinkFlush adapts the Sink contract to the batcher: append the batch, then
// refresh the aggregate. A refresh failure is logged but never unwinds a
// successful load.
func SinkFlush(sink repository.Sink, logger *slog.Logger) batcher.FlushFunc {
	return func(ctx context.Context, records []models.Transaction) error {
		n, err := sink.Load(ctx, records, repository.Append)
		if err != nil {
			return err
		}
		logger.Info("batch loaded to sink", "rows", n)
		if err := sink.RefreshAggregate(ctx); err != nil {
			logger.Error("aggregate refresh failed after successful load", "error", err)
		}
		return nil
	}
}

// NewDeadLetterWriter appends batches the sink kept refusing to an NDJSON
// file, one record per line, so nothing is silently dropped.
func NewDeadLetterWriter(path string, logger *slog.Logger) batcher.FlushFunc {
	return func(_ context.Context, records []models.Transaction) error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open dead letter file: %w", err)
		}
		defer f.Close()

		enc := json.NewEncoder(f)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("failed to write dead letter record: %w", err)
			}
		}
		logger.Warn("records written to dead letter file", "path", path, "count", len(records))
		return nil
	}
}
