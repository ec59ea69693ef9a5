package scheduler

import "errors"

var (
	// ErrNoSchedule is returned when an alert carries no cron expression
	ErrNoSchedule = errors.New("alert has no schedule")

	// ErrAlreadyScheduled is returned when an alert is added twice
	ErrAlreadyScheduled = errors.New("alert already scheduled")

	// ErrNotScheduled is returned when removing an alert without an entry
	ErrNotScheduled = errors.New("alert not scheduled")
)
