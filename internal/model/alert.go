package model

import "time"

// Alert describes one monitored condition: the query that evaluates it
// and the channels its notifications go to
type Alert struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	SQL         string        `json:"sql"`
	Schedule    string        `json:"schedule,omitempty"`
	Channels    []string      `json:"channels,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	Enabled     bool          `json:"enabled"`
}

// AlertBehavior is the notification policy applied when an alert fires.
// EscalationThreshold forces a re-notify each time the consecutive-alert
// count reaches a positive multiple of it; zero disables escalation.
type AlertBehavior struct {
	MinAlertInterval    time.Duration `json:"min_alert_interval"`
	EscalationThreshold int           `json:"escalation_threshold"`
}
