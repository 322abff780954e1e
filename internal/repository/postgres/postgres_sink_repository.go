package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/models"
	core "github.com/nikhere-creator/brainrocket-data-pipeline/internal/repository"
	pkgerrors "github.com/nikhere-creator/brainrocket-data-pipeline/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	factTable     = "fact_transactions"
	aggregateView = "mv_daily_game_metrics"
)

var insertColumns = []string{
	"game_id", "location_id", "user_id", "transaction_type", "amount",
	"currency", "transaction_date", "platform", "session_duration", "items_purchased",
}

type PostgresSinkRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresSinkRepository(db *sql.DB, logger *slog.Logger) *PostgresSinkRepository {
	return &PostgresSinkRepository{db: db, logger: logger}
}

// Load writes the whole batch in one database transaction: either every row
// becomes visible or none do. Replace mode truncates first.
func (r *PostgresSinkRepository) Load(ctx context.Context, records []models.Transaction, mode core.WriteMode) (int64, error) {
	var err error
	tracer := otel.Tracer("sink-repository")
	ctx, span := tracer.Start(ctx, "LoadTransactions")
	span.SetAttributes(
		attribute.Int("batch_size", len(records)),
		attribute.String("mode", string(mode)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.SinkCalls.WithLabelValues("Load", status).Inc()
		observability.SinkDuration.WithLabelValues("Load").Observe(time.Since(start).Seconds())
	}()

	if len(records) == 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", "method", "Load", "error", err)
		return 0, &pkgerrors.SinkError{Op: "begin", Err: err}
	}

	if mode == core.Replace {
		if _, err = dbTx.ExecContext(ctx, `TRUNCATE TABLE `+factTable); err != nil {
			err = r.rollback(dbTx, "truncate", err)
			return 0, &pkgerrors.SinkError{Op: "truncate", Err: err}
		}
	}

	query, args := buildInsert(records)
	if _, err = dbTx.ExecContext(ctx, query, args...); err != nil {
		err = r.rollback(dbTx, "insert", err)
		return 0, &pkgerrors.SinkError{Op: "insert", Err: err}
	}

	if err = dbTx.Commit(); err != nil {
		r.logger.Error("failed to commit batch", "method", "Load", "error", err)
		return 0, &pkgerrors.SinkError{Op: "commit", Err: err}
	}

	observability.RowsLoaded.Add(float64(len(records)))
	r.logger.Info("transactions loaded", "method", "Load", "rows", len(records), "mode", mode)
	return int64(len(records)), nil
}

// RefreshAggregate recomputes the daily game metrics view.
func (r *PostgresSinkRepository) RefreshAggregate(ctx context.Context) error {
	var err error
	tracer := otel.Tracer("sink-repository")
	ctx, span := tracer.Start(ctx, "RefreshAggregate")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.SinkCalls.WithLabelValues("RefreshAggregate", status).Inc()
		observability.SinkDuration.WithLabelValues("RefreshAggregate").Observe(time.Since(start).Seconds())
	}()

	if _, err = r.db.ExecContext(ctx, `REFRESH MATERIALIZED VIEW `+aggregateView); err != nil {
		r.logger.Error("failed to refresh materialized view", "view", aggregateView, "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrAggregateRefresh, err)
	}

	r.logger.Info("materialized view refreshed", "view", aggregateView)
	return nil
}

// ApplySchemaFile executes a DDL file (schema or seed data) for --init-db.
func (r *PostgresSinkRepository) ApplySchemaFile(ctx context.Context, path string) error {
	ddl, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := r.db.ExecContext(ctx, string(ddl)); err != nil {
		return &pkgerrors.SinkError{Op: "apply schema " + path, Err: err}
	}
	r.logger.Info("schema file applied", "path", path)
	return nil
}

func (r *PostgresSinkRepository) rollback(dbTx *sql.Tx, op string, cause error) error {
	if rbErr := dbTx.Rollback(); rbErr != nil {
		r.logger.Error("rollback failed", "method", "Load", "op", op, "error", rbErr)
		return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, cause)
	}
	r.logger.Error("batch write failed", "method", "Load", "op", op, "error", cause)
	return cause
}

// buildInsert produces one multi-row INSERT so the sink's all-or-nothing
// write guarantee covers the whole batch.
func buildInsert(records []models.Transaction) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + factTable + " (" + strings.Join(insertColumns, ", ") + ") VALUES ")

	args := make([]any, 0, len(records)*len(insertColumns))
	for i, tx := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * len(insertColumns)
		sb.WriteString("(")
		for j := range insertColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j+1)
		}
		sb.WriteString(")")

		session := sql.NullInt64{}
		if tx.SessionDuration != nil {
			session = sql.NullInt64{Int64: int64(*tx.SessionDuration), Valid: true}
		}
		args = append(args,
			tx.GameID,
			tx.LocationID,
			tx.UserID,
			string(tx.Type),
			tx.Amount,
			tx.Currency,
			tx.TransactionDate,
			string(tx.Platform),
			session,
			tx.ItemsPurchased,
		)
	}
	return sb.String(), args
}
