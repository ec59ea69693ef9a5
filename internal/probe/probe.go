// Package probe executes alert check queries and normalizes the single
// result row into a CheckResult for the transition engine.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/model"
)

// Runner executes one alert's check and produces its result. A returned
// error means the check itself could not run; it is recorded as an
// error-status execution, never as an ALERT.
type Runner interface {
	Run(ctx context.Context, alert *model.Alert) (*model.CheckResult, error)
}

// DefaultTimeout bounds checks that configure no timeout of their own
const DefaultTimeout = 30 * time.Second

// SQLRunner evaluates alerts by running their SQL against a shared
// database handle. The query must return exactly one row containing a
// status column whose value is ALERT or OK (case-insensitive);
// actual_value and threshold columns are picked up when present, and
// every other column is carried as rendering context in column order.
type SQLRunner struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLRunner creates a runner over the given database handle
func NewSQLRunner(logger *zap.Logger, db *sql.DB) *SQLRunner {
	return &SQLRunner{
		logger: logger.Named("probe"),
		db:     db,
	}
}

// Run implements Runner
func (r *SQLRunner) Run(ctx context.Context, alert *model.Alert) (*model.CheckResult, error) {
	if strings.TrimSpace(alert.SQL) == "" {
		return nil, fmt.Errorf("alert %s has no check query", alert.Name)
	}

	timeout := alert.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, alert.SQL)
	if err != nil {
		return nil, fmt.Errorf("check query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("check query failed: %w", err)
		}
		return nil, fmt.Errorf("check query returned no rows, expected exactly one")
	}

	values := make([]interface{}, len(columns))
	for i := range values {
		values[i] = new(interface{})
	}
	if err := rows.Scan(values...); err != nil {
		return nil, fmt.Errorf("failed to scan result row: %w", err)
	}

	if rows.Next() {
		return nil, fmt.Errorf("check query returned multiple rows, expected exactly one")
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading check result: %w", err)
	}

	result, err := buildResult(alert.Name, columns, values)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Check executed",
		zap.String("alert", alert.Name),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// buildResult maps the scanned row onto a CheckResult by column name
func buildResult(alertName string, columns []string, values []interface{}) (*model.CheckResult, error) {
	result := &model.CheckResult{}
	statusSeen := false

	for i, column := range columns {
		value := *(values[i].(*interface{}))

		switch strings.ToLower(column) {
		case "status":
			status, err := parseStatus(value)
			if err != nil {
				return nil, fmt.Errorf("alert %s: %w", alertName, err)
			}
			result.Status = status
			statusSeen = true

		case "actual_value":
			f, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("alert %s: actual_value column: %w", alertName, err)
			}
			result.ActualValue = f

		case "threshold":
			f, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("alert %s: threshold column: %w", alertName, err)
			}
			result.Threshold = f

		default:
			result.Context = result.Context.Set(column, normalize(value))
		}
	}

	if !statusSeen {
		return nil, fmt.Errorf("alert %s: check query result has no status column", alertName)
	}
	return result, nil
}

// parseStatus accepts ALERT or OK in any case
func parseStatus(value interface{}) (model.CheckStatus, error) {
	text, ok := asString(value)
	if !ok {
		return "", fmt.Errorf("status column must be text, got %T", value)
	}

	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "ALERT":
		return model.CheckStatusAlert, nil
	case "OK":
		return model.CheckStatusOK, nil
	default:
		return "", fmt.Errorf("status column must be ALERT or OK, got %q", text)
	}
}

// toFloat converts a scanned numeric column; NULL yields a nil pointer
func toFloat(value interface{}) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case int64:
		f := float64(v)
		return &f, nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil, fmt.Errorf("not numeric: %q", string(v))
		}
		return &f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("not numeric: %q", v)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("not numeric: %T", value)
	}
}

// normalize keeps context values JSON-friendly
func normalize(value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
