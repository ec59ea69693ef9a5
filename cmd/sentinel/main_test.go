package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/sentinel/internal/config"
	"github.com/t77yq/sentinel/internal/model"
)

func TestSilenceDeadline(t *testing.T) {
	now := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)

	t.Run("for duration", func(t *testing.T) {
		deadline, err := silenceDeadline(now, 2*time.Hour, "")
		require.NoError(t, err)
		assert.Equal(t, now.Add(2*time.Hour), deadline)
	})

	t.Run("until timestamp", func(t *testing.T) {
		deadline, err := silenceDeadline(now, 0, "2025-03-14T09:30:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), deadline)
	})

	t.Run("rejects both flags", func(t *testing.T) {
		_, err := silenceDeadline(now, time.Hour, "2025-03-14T09:30:00Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("rejects neither flag", func(t *testing.T) {
		_, err := silenceDeadline(now, 0, "")
		require.Error(t, err)
	})

	t.Run("rejects past deadline", func(t *testing.T) {
		_, err := silenceDeadline(now, 0, "2025-03-14T05:00:00Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "future")
	})

	t.Run("rejects malformed timestamp", func(t *testing.T) {
		_, err := silenceDeadline(now, 0, "tomorrow")
		require.Error(t, err)
	})
}

func TestSelectAlerts(t *testing.T) {
	disabled := false
	cfg := &config.Config{
		Alerts: []config.AlertConfig{
			{Name: "daily_revenue", SQL: "SELECT 1"},
			{Name: "error_rate", SQL: "SELECT 1", Enabled: &disabled},
		},
	}

	t.Run("all skips disabled alerts", func(t *testing.T) {
		targets, err := selectAlerts(cfg, nil, true)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "daily_revenue", targets[0].Name)
	})

	t.Run("naming a disabled alert runs it", func(t *testing.T) {
		targets, err := selectAlerts(cfg, []string{"error_rate"}, false)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "error_rate", targets[0].Name)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := selectAlerts(cfg, []string{"ghost"}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown alert: ghost")
	})
}

func TestHistoryColumns(t *testing.T) {
	actual := 8000.0
	threshold := 10000.0

	assert.Equal(t, "8000/10000", valueColumn(&model.ExecutionRecord{ActualValue: &actual, Threshold: &threshold}))
	assert.Equal(t, "8000", valueColumn(&model.ExecutionRecord{ActualValue: &actual}))
	assert.Equal(t, "-", valueColumn(&model.ExecutionRecord{}))

	assert.Equal(t, "yes", notifiedColumn(&model.ExecutionRecord{NotificationSent: true}))
	assert.Equal(t, "partial", notifiedColumn(&model.ExecutionRecord{NotificationSent: true, NotificationError: "smtp timeout"}))
	assert.Equal(t, "failed", notifiedColumn(&model.ExecutionRecord{NotificationError: "smtp timeout"}))
	assert.Equal(t, "-", notifiedColumn(&model.ExecutionRecord{}))
}

func TestStatusColumns(t *testing.T) {
	now := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)

	st := model.NewAlertState("daily_revenue")
	assert.Equal(t, "-", consecutiveColumn(st))
	assert.Equal(t, "-", silenceColumn(st, now))

	st.ConsecutiveAlerts = 3
	assert.Equal(t, "3 alerts", consecutiveColumn(st))

	st.ConsecutiveAlerts = 0
	st.ConsecutiveSuccesses = 7
	assert.Equal(t, "7 ok", consecutiveColumn(st))

	active := now.Add(time.Hour)
	st.SilenceUntil = &active
	assert.Equal(t, "2025-03-14 07:00:00", silenceColumn(st, now))

	expired := now.Add(-time.Hour)
	st.SilenceUntil = &expired
	assert.Equal(t, "-", silenceColumn(st, now))
}
