package main

import (
	"flag"
	"os"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/csvio"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/generator"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
)

func main() {
	numRecords := flag.Int("num-records", 1000, "number of transactions to generate")
	output := flag.String("output", "data/gaming_transactions.csv", "output CSV path")
	flag.Parse()

	logger := observability.InitLogger()

	gen := generator.New(logger)
	txs := gen.Transactions(*numRecords)

	if err := csvio.WriteFile(*output, txs); err != nil {
		logger.Error("failed to write CSV", "path", *output, "error", err)
		os.Exit(1)
	}

	byType := map[models.TransactionType]int{}
	var total float64
	for _, tx := range txs {
		byType[tx.Type]++
		total += tx.Amount
	}
	logger.Info("dataset written",
		"path", *output,
		"records", len(txs),
		"purchases", byType[models.TypePurchase],
		"in_game", byType[models.TypeInGame],
		"subscriptions", byType[models.TypeSubscription],
		"total_amount", total)
}
