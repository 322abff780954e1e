// Package validate holds the single validation/cleaning contract shared by
// the batch loader and the streaming consumer. Records applies the
// whole-batch structural check and filters bad rows; Clean normalizes one
// loosely-typed record and reports a reject reason instead of panicking.
package validate

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	pkgerrors "github.com/nikhere-creator/brainrocket-data-pipeline/pkg/errors"
)

// Raw is a loosely-typed record as decoded from a JSON line or a CSV row.
type Raw map[string]any

// RequiredFields must be present and coercible for a record to be admitted.
var RequiredFields = []string{
	"game_id",
	"location_id",
	"user_id",
	"transaction_type",
	"amount",
	"transaction_date",
}

// timeLayouts accepted for transaction_date. RFC3339 covers the trailing-Z
// form; the date-only layout covers coercible date strings from CSV input.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Records validates a whole batch. A required column missing from the input
// schema is a StructuralError that aborts the call before any row is
// processed. Individual bad rows are dropped, counted and logged, never
// raised. Output preserves the input order of the surviving rows.
func Records(columns []string, rows []Raw, logger *slog.Logger) ([]models.Transaction, int, error) {
	colset := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		colset[c] = struct{}{}
	}
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := colset[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &pkgerrors.StructuralError{Missing: missing}
	}

	out := make([]models.Transaction, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		tx, err := Clean(row)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, *tx)
	}

	if dropped > 0 {
		observability.RowsDropped.Add(float64(dropped))
		logger.Warn("removed invalid rows during validation", "dropped", dropped, "kept", len(out))
	}
	return out, dropped, nil
}

// Clean coerces and checks a single record. The returned error is a reject
// reason for the caller to log; Clean itself never panics and never touches
// the rest of the stream.
func Clean(raw Raw) (*models.Transaction, error) {
	var missing []string
	for _, f := range RequiredFields {
		if !present(raw, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrMissingFields, strings.Join(missing, ", "))
	}

	gameID, err := toInt(raw["game_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidGameID, raw["game_id"])
	}
	locationID, err := toInt(raw["location_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidLocationID, raw["location_id"])
	}

	userID := strings.TrimSpace(toString(raw["user_id"]))
	if userID == "" {
		return nil, pkgerrors.ErrEmptyUserID
	}

	txType := models.TransactionType(strings.ToLower(strings.TrimSpace(toString(raw["transaction_type"]))))
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrInvalidTransactionType, txType)
	}

	amount, err := toFloat(raw["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidAmount, raw["amount"])
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrNonPositiveAmount, amount)
	}

	date, err := toTime(raw["transaction_date"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidTransactionDate, raw["transaction_date"])
	}

	tx := &models.Transaction{
		GameID:          gameID,
		LocationID:      locationID,
		UserID:          userID,
		Type:            txType,
		Amount:          amount,
		Currency:        "USD",
		TransactionDate: date,
		Platform:        models.PlatformWeb,
		ItemsPurchased:  1,
	}

	// Optional fields: uncoercible values fall back to the default rather
	// than rejecting an otherwise valid record.
	if present(raw, "currency") {
		tx.Currency = strings.TrimSpace(toString(raw["currency"]))
	}
	if present(raw, "platform") {
		tx.Platform = models.Platform(strings.ToLower(strings.TrimSpace(toString(raw["platform"]))))
	}
	if present(raw, "items_purchased") {
		if n, err := toInt(raw["items_purchased"]); err == nil {
			tx.ItemsPurchased = n
		}
	}
	if present(raw, "session_duration") {
		if n, err := toInt(raw["session_duration"]); err == nil {
			tx.SessionDuration = &n
		}
	}

	return tx, nil
}

// present reports whether a field carries a usable value. JSON null and
// empty CSV cells count as absent.
func present(raw Raw, key string) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse time %q with any known layout", s)
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to time", v)
	}
}
