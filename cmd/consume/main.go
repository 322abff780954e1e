package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/batcher"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/config"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/consumer"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/kafka"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/redis"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/observability"
	core "github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository/postgres"
	_ "github.com/lib/pq"
)

func main() {
	batchSize := flag.Int("batch-size", 0, "records per batch; 0 uses BATCH_SIZE from the environment")
	maxBatchTime := flag.Duration("max-batch-time", 0, "max time between flushes; 0 uses MAX_BATCH_TIME_SECONDS")
	transport := flag.String("transport", "stdio", "event transport: stdio or kafka")
	flag.Parse()

	cfg := config.Load()
	logger, shutdown := observability.Setup("stream-consumer", cfg.MetricsAddr)
	defer shutdown(context.Background())

	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *maxBatchTime > 0 {
		cfg.MaxBatchTime = *maxBatchTime
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		logger.Error("failed to open Postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach Postgres", "error", err)
		os.Exit(1)
	}
	sink := core.NewPostgresSinkRepository(db, logger)

	b := batcher.New(
		batcher.Config{
			BatchSize:            cfg.BatchSize,
			MaxBatchTime:         cfg.MaxBatchTime,
			MaxRetries:           cfg.FlushRetries,
			RetryInitialInterval: cfg.RetryInitialInterval,
		},
		consumer.SinkFlush(sink, logger),
		logger,
		batcher.WithDeadLetter(consumer.NewDeadLetterWriter(cfg.DeadLetterPath, logger)),
	)

	var source consumer.Source
	switch *transport {
	case "stdio":
		source = consumer.NewLineSource(os.Stdin)
	case "kafka":
		reader := kafka.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		defer reader.Close()
		source = reader
	default:
		logger.Error("unknown transport", "transport", *transport)
		os.Exit(1)
	}

	var opts []consumer.Option
	if cfg.RedisAddr != "" {
		dedup, err := redis.NewClient(cfg.RedisAddr, logger)
		if err != nil {
			logger.Error("failed to connect to Redis, dedup disabled", "error", err)
		} else {
			defer dedup.Close()
			opts = append(opts, consumer.WithDedup(dedup, cfg.DedupTTL))
		}
	}

	c := consumer.New(source, b, time.Second, logger, opts...)
	if err := c.Run(ctx); err != nil {
		accepted, rejected := c.Stats()
		logger.Error("consumer exited with unflushed records",
			"accepted", accepted, "rejected", rejected, "error", err)
		os.Exit(1)
	}
}
