package validate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	pkgerrors "github.com/nikhere-creator/brainrocket-data-pipeline/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var allColumns = []string{
	"game_id", "location_id", "user_id", "transaction_type", "amount",
	"currency", "transaction_date", "platform", "session_duration", "items_purchased",
}

func validRow() Raw {
	return Raw{
		"game_id":          3,
		"location_id":      7,
		"user_id":          "user_ab12cd34",
		"transaction_type": "Purchase ",
		"amount":           "19.99",
		"transaction_date": "2024-01-01T10:00:00Z",
	}
}

func TestRecords_StructuralError(t *testing.T) {
	columns := []string{"game_id", "location_id", "user_id", "transaction_type", "amount"}
	rows := []Raw{validRow()}

	out, dropped, err := Records(columns, rows, testLogger)
	require.Error(t, err)

	var structural *pkgerrors.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, []string{"transaction_date"}, structural.Missing)
	assert.Nil(t, out)
	assert.Zero(t, dropped)
}

func TestRecords_CleansAndFilters(t *testing.T) {
	badAmount := validRow()
	badAmount["amount"] = -5

	badType := validRow()
	badType["transaction_type"] = "refund"

	badDate := validRow()
	badDate["transaction_date"] = "not-a-date"

	rows := []Raw{validRow(), badAmount, badType, badDate}

	out, dropped, err := Records(allColumns, rows, testLogger)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, len(rows)-len(out), dropped)

	tx := out[0]
	assert.Equal(t, 3, tx.GameID)
	assert.Equal(t, 7, tx.LocationID)
	assert.Equal(t, "user_ab12cd34", tx.UserID)
	assert.Equal(t, models.TypePurchase, tx.Type)
	assert.Equal(t, 19.99, tx.Amount)
	assert.True(t, tx.TransactionDate.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestRecords_PreservesOrder(t *testing.T) {
	first := validRow()
	first["user_id"] = "user_first"
	bad := validRow()
	bad["amount"] = "zero"
	last := validRow()
	last["user_id"] = "user_last"

	out, dropped, err := Records(allColumns, []Raw{first, bad, last}, testLogger)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "user_first", out[0].UserID)
	assert.Equal(t, "user_last", out[1].UserID)
}

func TestClean_Defaults(t *testing.T) {
	tx, err := Clean(validRow())
	require.NoError(t, err)

	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, models.PlatformWeb, tx.Platform)
	assert.Equal(t, 1, tx.ItemsPurchased)
	assert.Nil(t, tx.SessionDuration)
}

func TestClean_OptionalFields(t *testing.T) {
	row := validRow()
	row["currency"] = "EUR"
	row["platform"] = "Console"
	row["session_duration"] = 42.0 // JSON numbers decode as float64
	row["items_purchased"] = "3"

	tx, err := Clean(row)
	require.NoError(t, err)
	assert.Equal(t, "EUR", tx.Currency)
	assert.Equal(t, models.PlatformConsole, tx.Platform)
	require.NotNil(t, tx.SessionDuration)
	assert.Equal(t, 42, *tx.SessionDuration)
	assert.Equal(t, 3, tx.ItemsPurchased)
}

func TestClean_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(Raw)
		wantErr error
	}{
		{"missing amount", func(r Raw) { delete(r, "amount") }, pkgerrors.ErrMissingFields},
		{"null user_id", func(r Raw) { r["user_id"] = nil }, pkgerrors.ErrMissingFields},
		{"blank user_id", func(r Raw) { r["user_id"] = "   " }, pkgerrors.ErrMissingFields},
		{"bad game_id", func(r Raw) { r["game_id"] = "three" }, pkgerrors.ErrInvalidGameID},
		{"bad amount", func(r Raw) { r["amount"] = "nineteen" }, pkgerrors.ErrInvalidAmount},
		{"zero amount", func(r Raw) { r["amount"] = 0.0 }, pkgerrors.ErrNonPositiveAmount},
		{"negative amount", func(r Raw) { r["amount"] = -5.0 }, pkgerrors.ErrNonPositiveAmount},
		{"unknown type", func(r Raw) { r["transaction_type"] = "refund" }, pkgerrors.ErrInvalidTransactionType},
		{"bad date", func(r Raw) { r["transaction_date"] = "yesterday" }, pkgerrors.ErrInvalidTransactionDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			tx, err := Clean(row)
			assert.Nil(t, tx)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClean_CaseInsensitiveType(t *testing.T) {
	for _, input := range []string{"PURCHASE", "Purchase", " purchase  ", "In-Game", "SUBSCRIPTION"} {
		row := validRow()
		row["transaction_type"] = input
		tx, err := Clean(row)
		require.NoError(t, err, "input %q", input)
		assert.True(t, tx.Type.Valid())
	}
}

func TestClean_DateLayouts(t *testing.T) {
	for _, input := range []string{
		"2024-01-01T10:00:00Z",
		"2024-01-01T10:00:00+02:00",
		"2024-01-01T10:00:00",
		"2024-01-01 10:00:00",
		"2024-01-01",
	} {
		row := validRow()
		row["transaction_date"] = input
		_, err := Clean(row)
		assert.NoError(t, err, "input %q", input)
	}
}

// A second pass over already-clean output must be a no-op.
func TestClean_Idempotent(t *testing.T) {
	duration := 90
	rows := []Raw{
		validRow(),
		{
			"game_id":          10,
			"location_id":      15,
			"user_id":          "user_ffff0000",
			"transaction_type": "subscription",
			"amount":           9.99,
			"transaction_date": "2024-03-05T08:30:00Z",
			"currency":         "USD",
			"platform":         "mobile",
			"session_duration": duration,
			"items_purchased":  1,
		},
	}

	for _, row := range rows {
		once, err := Clean(row)
		require.NoError(t, err)
		twice, err := Clean(rawFrom(*once))
		require.NoError(t, err)
		assert.True(t, once.TransactionDate.Equal(twice.TransactionDate))
		once.TransactionDate = time.Time{}
		twice.TransactionDate = time.Time{}
		assert.Equal(t, once, twice)
	}
}

func TestRecords_EnumClosureAndPositivity(t *testing.T) {
	rows := []Raw{}
	for _, typ := range []string{"purchase", "in-game", "subscription", "refund", "chargeback", "IN-GAME"} {
		for _, amount := range []any{19.99, -1.0, 0.0, "5", "bogus"} {
			row := validRow()
			row["transaction_type"] = typ
			row["amount"] = amount
			rows = append(rows, row)
		}
	}

	out, dropped, err := Records(allColumns, rows, testLogger)
	require.NoError(t, err)
	assert.Equal(t, len(rows), len(out)+dropped)
	for _, tx := range out {
		assert.True(t, tx.Type.Valid())
		assert.Greater(t, tx.Amount, 0.0)
	}
}

func rawFrom(tx models.Transaction) Raw {
	raw := Raw{
		"game_id":          tx.GameID,
		"location_id":      tx.LocationID,
		"user_id":          tx.UserID,
		"transaction_type": string(tx.Type),
		"amount":           tx.Amount,
		"currency":         tx.Currency,
		"transaction_date": tx.TransactionDate,
		"platform":         string(tx.Platform),
		"items_purchased":  tx.ItemsPurchased,
	}
	if tx.SessionDuration != nil {
		raw["session_duration"] = *tx.SessionDuration
	}
	return raw
}
