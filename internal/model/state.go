package model

import "time"

// AlertState is the durable lifecycle record kept per alert identity.
// Exactly one row exists per alert name; evaluation logic mutates it only
// through the transition engine's output.
type AlertState struct {
	AlertName               string      `json:"alert_name"`
	CurrentStatus           AlertStatus `json:"current_status"`
	LastExecutionAt         *time.Time  `json:"last_execution_at,omitempty"`
	LastAlertAt             *time.Time  `json:"last_alert_at,omitempty"`
	ConsecutiveAlerts       int         `json:"consecutive_alerts"`
	ConsecutiveSuccesses    int         `json:"consecutive_successes"`
	SilenceUntil            *time.Time  `json:"silence_until,omitempty"`
	EscalationCount         int         `json:"escalation_count"`
	LastNotificationChannel string      `json:"last_notification_channel,omitempty"`
	LastNotificationError   string      `json:"last_notification_error,omitempty"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// NewAlertState returns the default state for a never-evaluated alert
func NewAlertState(name string) *AlertState {
	return &AlertState{
		AlertName:     name,
		CurrentStatus: AlertStatusUnset,
	}
}

// SilencedAt reports whether the alert is silenced at the given instant
func (s *AlertState) SilencedAt(now time.Time) bool {
	return s.SilenceUntil != nil && s.SilenceUntil.After(now)
}

// Clone returns a deep copy so callers can derive a new state without
// mutating the stored one
func (s *AlertState) Clone() *AlertState {
	if s == nil {
		return nil
	}
	out := *s
	out.LastExecutionAt = cloneTime(s.LastExecutionAt)
	out.LastAlertAt = cloneTime(s.LastAlertAt)
	out.SilenceUntil = cloneTime(s.SilenceUntil)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
