package model

// NotificationAttempt is the final delivery outcome on one channel.
// Attempt is the 1-based attempt number the outcome landed on.
type NotificationAttempt struct {
	Channel string `json:"channel"`
	Attempt int    `json:"attempt"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NotificationOutcome aggregates one dispatch across all channels.
// Sent is true when at least one channel succeeded. FirstError keeps the
// first failing channel's error even when a later channel succeeds;
// LastChannel names the last channel that succeeded.
type NotificationOutcome struct {
	Sent        bool                  `json:"sent"`
	LastChannel string                `json:"last_channel,omitempty"`
	FirstError  string                `json:"first_error,omitempty"`
	Attempts    []NotificationAttempt `json:"attempts,omitempty"`
}
