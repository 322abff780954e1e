// Command demo runs the whole pipeline in one process with no external
// services: a batch pass over generated records, then a producer goroutine
// streaming events through an in-memory pipe into the micro-batching
// consumer backed by an in-memory sink.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/batcher"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/consumer"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/csvio"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/generator"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/validate"
)

type memorySink struct {
	mu     sync.Mutex
	logger *slog.Logger
	rows   int
}

func (s *memorySink) Load(_ context.Context, records []models.Transaction, _ repository.WriteMode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows += len(records)
	s.logger.Info("sink received batch", "size", len(records), "total_rows", s.rows)
	return int64(len(records)), nil
}

func (s *memorySink) RefreshAggregate(context.Context) error {
	s.logger.Info("aggregate refreshed")
	return nil
}

func main() {
	records := flag.Int("records", 25, "batch records to generate")
	events := flag.Int("events", 12, "events to stream")
	rate := flag.Float64("rate", 10, "stream events per second")
	flag.Parse()

	logger := observability.InitLogger()
	gen := generator.New(logger)

	// Batch pass: generate, round-trip through the CSV codec, validate.
	logger.Info("demo: batch pass", "records", *records)
	txs := gen.Transactions(*records)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(csvio.Write(pw, txs))
	}()
	header, rows, err := csvio.Read(pr)
	if err != nil {
		logger.Error("CSV round-trip failed", "error", err)
		os.Exit(1)
	}
	clean, dropped, err := validate.Records(header, rows, logger)
	if err != nil {
		logger.Error("validation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("batch pass complete", "valid", len(clean), "dropped", dropped)

	// Streaming pass: producer | consumer over an in-memory pipe.
	logger.Info("demo: streaming pass", "events", *events, "rate", *rate)
	sink := &memorySink{logger: logger}
	b := batcher.New(
		batcher.Config{BatchSize: 5, MaxBatchTime: 2 * time.Second},
		consumer.SinkFlush(sink, logger),
		logger,
	)

	spr, spw := io.Pipe()
	go func() {
		enc := json.NewEncoder(spw)
		_, err := gen.Stream(context.Background(), *rate, *events, func(ev models.Event) error {
			return enc.Encode(ev)
		})
		spw.CloseWithError(err)
	}()

	c := consumer.New(consumer.NewLineSource(spr), b, 500*time.Millisecond, logger)
	if err := c.Run(context.Background()); err != nil {
		logger.Error("streaming pass failed", "error", err)
		os.Exit(1)
	}

	accepted, rejected := c.Stats()
	logger.Info("demo complete", "streamed_accepted", accepted, "streamed_rejected", rejected, "sink_rows", sink.rows)
}
