// Package csvio reads and writes the delimited batch format. Reading stays
// loosely typed: cells come back as strings inside validate.Raw so the
// shared validation core owns all coercion.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/validate"
)

// Columns is the canonical header, required fields first.
var Columns = []string{
	"game_id",
	"location_id",
	"user_id",
	"transaction_type",
	"amount",
	"currency",
	"transaction_date",
	"platform",
	"session_duration",
	"items_purchased",
}

func Write(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, tx := range txs {
		session := ""
		if tx.SessionDuration != nil {
			session = strconv.Itoa(*tx.SessionDuration)
		}
		record := []string{
			strconv.Itoa(tx.GameID),
			strconv.Itoa(tx.LocationID),
			tx.UserID,
			string(tx.Type),
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Currency,
			tx.TransactionDate.Format(time.RFC3339),
			string(tx.Platform),
			session,
			strconv.Itoa(tx.ItemsPurchased),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteFile(path string, txs []models.Transaction) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, txs)
}

// Read returns the header and one Raw per data row. Empty cells stay empty
// strings; validate treats those as absent values.
func Read(r io.Reader) ([]string, []validate.Raw, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []validate.Raw
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(validate.Raw, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func ReadFile(path string) ([]string, []validate.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
