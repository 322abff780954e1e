package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/config"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/csvio"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository"
	core "github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository/postgres"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/validate"
	_ "github.com/lib/pq"
)

func main() {
	input := flag.String("input", "", "input CSV path (required)")
	truncate := flag.Bool("truncate", false, "truncate fact_transactions before loading")
	initDB := flag.String("init-db", "", "apply the given schema file before loading")
	flag.Parse()

	logger, shutdown := observability.Setup("batch-etl", "")
	defer shutdown(context.Background())
	cfg := config.Load()

	if *input == "" {
		logger.Error("missing required flag -input")
		flag.Usage()
		os.Exit(1)
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

	if *initDB != "" {
		if err := sink.ApplySchemaFile(ctx, *initDB); err != nil {
			logger.Error("schema initialization failed", "path", *initDB, "error", err)
			os.Exit(1)
		}
		logger.Info("schema applied", "path", *initDB)
	}

	start := time.Now()
	header, rows, err := csvio.ReadFile(*input)
	if err != nil {
		logger.Error("failed to read input file", "path", *input, "error", err)
		os.Exit(1)
	}

	records, dropped, err := validate.Records(header, rows, logger)
	if err != nil {
		logger.Error("input file is structurally invalid", "path", *input, "error", err)
		os.Exit(1)
	}

	mode := repository.Append
	if *truncate {
		mode = repository.Replace
	}
	loaded, err := sink.Load(ctx, records, mode)
	if err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}

	if err := sink.RefreshAggregate(ctx); err != nil {
		logger.Error("aggregate refresh failed, loaded rows are intact", "error", err)
	}

	logger.Info("ETL run complete",
		"read", len(rows),
		"dropped", dropped,
		"loaded", loaded,
		"truncated", *truncate,
		"took", time.Since(start))
}
