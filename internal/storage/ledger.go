package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/model"
)

// LedgerQuery selects a page of execution records. An empty AlertName
// matches every alert; a Limit of zero or less means no limit.
type LedgerQuery struct {
	AlertName string
	Limit     int
	Offset    int
}

// Ledger defines the append-only execution history. Records are never
// updated; DeleteBefore exists for out-of-band retention only.
type Ledger interface {
	// Record appends one execution record
	Record(ctx context.Context, rec *model.ExecutionRecord) error

	// Query returns matching records, most recent first
	Query(ctx context.Context, q LedgerQuery) ([]*model.ExecutionRecord, error)

	// Count returns the number of records matching alertName ("" = all)
	Count(ctx context.Context, alertName string) (int, error)

	// Stats aggregates matching records ("" = all)
	Stats(ctx context.Context, alertName string) (*model.ExecutionStats, error)

	// DeleteBefore removes records executed before the given time
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteLedger implements Ledger using SQLite
type SQLiteLedger struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteLedger creates the ledger and its schema if missing
func NewSQLiteLedger(logger *zap.Logger, db *sql.DB) (*SQLiteLedger, error) {
	l := &SQLiteLedger{
		logger: logger,
		db:     db,
	}

	if err := l.initialize(); err != nil {
		return nil, err
	}

	return l, nil
}

// initialize creates the necessary tables if they don't exist
func (l *SQLiteLedger) initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS alert_executions (
			execution_id TEXT PRIMARY KEY,
			alert_name TEXT NOT NULL,
			executed_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			status TEXT NOT NULL,
			actual_value REAL,
			threshold REAL,
			error_message TEXT,
			triggered_by TEXT NOT NULL,
			notification_sent INTEGER NOT NULL DEFAULT 0,
			notification_error TEXT,
			context_json TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_executions_alert_name ON alert_executions(alert_name);
		CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON alert_executions(executed_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize alert_executions: %w", err)
	}
	return nil
}

// Record implements Ledger.Record
func (l *SQLiteLedger) Record(ctx context.Context, rec *model.ExecutionRecord) error {
	var contextJSON sql.NullString
	if rec.Context != nil {
		data, err := json.Marshal(rec.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal execution context: %w", err)
		}
		contextJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO alert_executions (
			execution_id, alert_name, executed_at, duration_ms, status,
			actual_value, threshold, error_message, triggered_by,
			notification_sent, notification_error, context_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ExecutionID,
		rec.AlertName,
		rec.ExecutedAt,
		rec.DurationMS,
		rec.Status,
		nullFloat(rec.ActualValue),
		nullFloat(rec.Threshold),
		sql.NullString{String: rec.ErrorMessage, Valid: rec.ErrorMessage != ""},
		rec.TriggeredBy,
		rec.NotificationSent,
		sql.NullString{String: rec.NotificationError, Valid: rec.NotificationError != ""},
		contextJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Query implements Ledger.Query. Ties on executed_at break toward the
// later insert so pages stay disjoint.
func (l *SQLiteLedger) Query(ctx context.Context, q LedgerQuery) ([]*model.ExecutionRecord, error) {
	query := `
		SELECT
			execution_id, alert_name, executed_at, duration_ms, status,
			actual_value, threshold, error_message, triggered_by,
			notification_sent, notification_error, context_json
		FROM alert_executions`
	args := make([]interface{}, 0, 3)

	if q.AlertName != "" {
		query += " WHERE alert_name = ?"
		args = append(args, q.AlertName)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY executed_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var records []*model.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

// Count implements Ledger.Count
func (l *SQLiteLedger) Count(ctx context.Context, alertName string) (int, error) {
	query := "SELECT COUNT(*) FROM alert_executions"
	args := make([]interface{}, 0, 1)
	if alertName != "" {
		query += " WHERE alert_name = ?"
		args = append(args, alertName)
	}

	var count int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}

// Stats implements Ledger.Stats
func (l *SQLiteLedger) Stats(ctx context.Context, alertName string) (*model.ExecutionStats, error) {
	query := `
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			AVG(duration_ms),
			MIN(duration_ms),
			MAX(duration_ms)
		FROM alert_executions`
	args := []interface{}{
		model.ExecutionStatusSuccess,
		model.ExecutionStatusFailure,
		model.ExecutionStatusError,
	}
	if alertName != "" {
		query += " WHERE alert_name = ?"
		args = append(args, alertName)
	}

	var stats model.ExecutionStats
	var success, failure, errCount sql.NullInt64
	var avg sql.NullFloat64
	var min, max sql.NullInt64

	err := l.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalExecutions,
		&success,
		&failure,
		&errCount,
		&avg,
		&min,
		&max,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate executions: %w", err)
	}

	stats.SuccessCount = int(success.Int64)
	stats.FailureCount = int(failure.Int64)
	stats.ErrorCount = int(errCount.Int64)
	stats.AvgDurationMS = avg.Float64
	stats.MinDurationMS = min.Int64
	stats.MaxDurationMS = max.Int64

	return &stats, nil
}

// DeleteBefore implements Ledger.DeleteBefore
func (l *SQLiteLedger) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM alert_executions WHERE executed_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete executions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	l.logger.Info("Deleted old execution records",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return affected, nil
}

func scanExecution(rows *sql.Rows) (*model.ExecutionRecord, error) {
	rec := &model.ExecutionRecord{}
	var actualValue, threshold sql.NullFloat64
	var errorMessage, notificationError, contextJSON sql.NullString

	err := rows.Scan(
		&rec.ExecutionID,
		&rec.AlertName,
		&rec.ExecutedAt,
		&rec.DurationMS,
		&rec.Status,
		&actualValue,
		&threshold,
		&errorMessage,
		&rec.TriggeredBy,
		&rec.NotificationSent,
		&notificationError,
		&contextJSON,
	)
	if err != nil {
		return nil, err
	}

	if actualValue.Valid {
		rec.ActualValue = &actualValue.Float64
	}
	if threshold.Valid {
		rec.Threshold = &threshold.Float64
	}
	if errorMessage.Valid {
		rec.ErrorMessage = errorMessage.String
	}
	if notificationError.Valid {
		rec.NotificationError = notificationError.String
	}
	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &rec.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
		}
	}

	return rec, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
