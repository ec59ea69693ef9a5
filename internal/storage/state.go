package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/model"
)

// StateStore defines persistence for per-alert lifecycle state
type StateStore interface {
	// Get returns the stored state for an alert, or a fresh default
	// state if the alert has never been evaluated
	Get(ctx context.Context, alertName string) (*model.AlertState, error)

	// Save upserts the state row for state.AlertName
	Save(ctx context.Context, state *model.AlertState) error

	// Silence suppresses notifications for the alert until the given
	// time, creating the state row if it does not exist yet
	Silence(ctx context.Context, alertName string, until time.Time) error

	// Unsilence clears an active silence window
	Unsilence(ctx context.Context, alertName string) error

	// List returns all known alert states ordered by name
	List(ctx context.Context) ([]*model.AlertState, error)
}

// SQLiteStateStore implements StateStore using SQLite
type SQLiteStateStore struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteStateStore creates the store and its schema if missing
func NewSQLiteStateStore(logger *zap.Logger, db *sql.DB) (*SQLiteStateStore, error) {
	s := &SQLiteStateStore{
		logger: logger,
		db:     db,
	}

	if err := s.initialize(); err != nil {
		return nil, err
	}

	return s, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteStateStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS alert_state (
			alert_name TEXT PRIMARY KEY,
			current_status TEXT NOT NULL DEFAULT 'unset',
			last_execution_at DATETIME,
			last_alert_at DATETIME,
			consecutive_alerts INTEGER NOT NULL DEFAULT 0,
			consecutive_successes INTEGER NOT NULL DEFAULT 0,
			silence_until DATETIME,
			escalation_count INTEGER NOT NULL DEFAULT 0,
			last_notification_channel TEXT,
			last_notification_error TEXT,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize alert_state: %w", err)
	}
	return nil
}

// Get implements StateStore.Get
func (s *SQLiteStateStore) Get(ctx context.Context, alertName string) (*model.AlertState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			alert_name, current_status, last_execution_at, last_alert_at,
			consecutive_alerts, consecutive_successes, silence_until,
			escalation_count, last_notification_channel,
			last_notification_error, updated_at
		FROM alert_state
		WHERE alert_name = ?`, alertName)

	state, err := scanState(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.NewAlertState(alertName), nil
		}
		return nil, fmt.Errorf("failed to read alert state: %w", err)
	}
	return state, nil
}

// Save implements StateStore.Save
func (s *SQLiteStateStore) Save(ctx context.Context, state *model.AlertState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_state (
			alert_name, current_status, last_execution_at, last_alert_at,
			consecutive_alerts, consecutive_successes, silence_until,
			escalation_count, last_notification_channel,
			last_notification_error, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(alert_name) DO UPDATE SET
			current_status = excluded.current_status,
			last_execution_at = excluded.last_execution_at,
			last_alert_at = excluded.last_alert_at,
			consecutive_alerts = excluded.consecutive_alerts,
			consecutive_successes = excluded.consecutive_successes,
			silence_until = excluded.silence_until,
			escalation_count = excluded.escalation_count,
			last_notification_channel = excluded.last_notification_channel,
			last_notification_error = excluded.last_notification_error,
			updated_at = excluded.updated_at`,
		state.AlertName,
		state.CurrentStatus,
		nullTime(state.LastExecutionAt),
		nullTime(state.LastAlertAt),
		state.ConsecutiveAlerts,
		state.ConsecutiveSuccesses,
		nullTime(state.SilenceUntil),
		state.EscalationCount,
		sql.NullString{String: state.LastNotificationChannel, Valid: state.LastNotificationChannel != ""},
		sql.NullString{String: state.LastNotificationError, Valid: state.LastNotificationError != ""},
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert state: %w", err)
	}
	return nil
}

// Silence implements StateStore.Silence. The upsert touches only the
// silence window, so it is safe to call while an evaluation of the same
// alert is in flight.
func (s *SQLiteStateStore) Silence(ctx context.Context, alertName string, until time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_state (alert_name, current_status, silence_until, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(alert_name) DO UPDATE SET
			silence_until = excluded.silence_until,
			updated_at = excluded.updated_at`,
		alertName,
		model.AlertStatusUnset,
		until,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to silence alert: %w", err)
	}

	s.logger.Info("Alert silenced",
		zap.String("alert", alertName),
		zap.Time("until", until))

	return nil
}

// Unsilence implements StateStore.Unsilence. Clearing an alert that was
// never silenced is a no-op.
func (s *SQLiteStateStore) Unsilence(ctx context.Context, alertName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE alert_state
		SET silence_until = NULL, updated_at = ?
		WHERE alert_name = ?`,
		time.Now().UTC(),
		alertName,
	)
	if err != nil {
		return fmt.Errorf("failed to unsilence alert: %w", err)
	}

	s.logger.Info("Alert unsilenced", zap.String("alert", alertName))

	return nil
}

// List implements StateStore.List
func (s *SQLiteStateStore) List(ctx context.Context) ([]*model.AlertState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			alert_name, current_status, last_execution_at, last_alert_at,
			consecutive_alerts, consecutive_successes, silence_until,
			escalation_count, last_notification_channel,
			last_notification_error, updated_at
		FROM alert_state
		ORDER BY alert_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert states: %w", err)
	}
	defer rows.Close()

	var states []*model.AlertState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return states, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*model.AlertState, error) {
	var state model.AlertState
	var lastExecutionAt, lastAlertAt, silenceUntil sql.NullTime
	var lastChannel, lastError sql.NullString

	err := row.Scan(
		&state.AlertName,
		&state.CurrentStatus,
		&lastExecutionAt,
		&lastAlertAt,
		&state.ConsecutiveAlerts,
		&state.ConsecutiveSuccesses,
		&silenceUntil,
		&state.EscalationCount,
		&lastChannel,
		&lastError,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastExecutionAt.Valid {
		state.LastExecutionAt = &lastExecutionAt.Time
	}
	if lastAlertAt.Valid {
		state.LastAlertAt = &lastAlertAt.Time
	}
	if silenceUntil.Valid {
		state.SilenceUntil = &silenceUntil.Time
	}
	if lastChannel.Valid {
		state.LastNotificationChannel = lastChannel.String
	}
	if lastError.Valid {
		state.LastNotificationError = lastError.String
	}

	return &state, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
