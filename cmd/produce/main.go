package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/config"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/generator"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/kafka"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
)

func main() {
	eventsPerSec := flag.Float64("rate", 2, "events per second; 0 disables pacing")
	maxEvents := flag.Int("max-events", 0, "stop after this many events; 0 runs until interrupted")
	pretty := flag.Bool("pretty", false, "indent the JSON output (breaks one-line-per-event, debugging only)")
	transport := flag.String("transport", "stdio", "event transport: stdio or kafka")
	flag.Parse()

	logger := observability.InitLogger()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var emit generator.EmitFunc
	switch *transport {
	case "stdio":
		enc := json.NewEncoder(os.Stdout)
		if *pretty {
			enc.SetIndent("", "  ")
		}
		emit = func(ev models.Event) error {
			return enc.Encode(ev)
		}
	case "kafka":
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
		emit = func(ev models.Event) error {
			payload, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			return producer.Send(ctx, ev.EventID, payload)
		}
	default:
		logger.Error("unknown transport", "transport", *transport)
		os.Exit(1)
	}

	count, err := generator.New(logger).Stream(ctx, *eventsPerSec, *maxEvents, emit)
	if err != nil {
		logger.Error("producer failed", "events", count, "error", err)
		os.Exit(1)
	}
	logger.Info("producer finished", "events", count)
}
