// Package engine holds the pure alert transition logic. It computes the
// next AlertState and a notification decision from the current state and
// a fresh check result, without doing any I/O or reading the clock.
package engine

import (
	"time"

	"github.com/t77yq/sentinel/internal/model"
)

// Decision is the notification verdict for one evaluation
type Decision struct {
	// Notify is true when a notification should be dispatched
	Notify bool
	// Escalated is true when the consecutive-alert count crossed the
	// escalation threshold on this evaluation
	Escalated bool
	// Silenced is true when an active silence window suppressed the
	// notification
	Silenced bool
}

// Apply computes the successor state for one check result.
//
// Notification is edge-triggered: it fires on the transition into ALERT,
// not on every repeated ALERT, and only when MinAlertInterval has elapsed
// since the last observed alert. Crossing the escalation threshold forces
// a re-notify past both gates. An active silence window suppresses the
// notification unconditionally but never the bookkeeping: counters,
// status, and timestamps still update.
//
// The input state is not mutated; callers pass now explicitly.
func Apply(state *model.AlertState, result *model.CheckResult, behavior model.AlertBehavior, now time.Time) (*model.AlertState, Decision) {
	next := state.Clone()
	next.LastExecutionAt = &now
	next.UpdatedAt = now

	var decision Decision

	switch result.Status {
	case model.CheckStatusOK:
		next.ConsecutiveAlerts = 0
		next.ConsecutiveSuccesses++
		next.CurrentStatus = model.AlertStatusOK

	case model.CheckStatusAlert:
		next.ConsecutiveSuccesses = 0
		next.ConsecutiveAlerts++

		onEdge := state.CurrentStatus != model.AlertStatusAlert
		decision.Notify = onEdge && intervalElapsed(state.LastAlertAt, behavior.MinAlertInterval, now)

		if crossedEscalation(next.ConsecutiveAlerts, behavior.EscalationThreshold) {
			next.EscalationCount++
			decision.Escalated = true
			decision.Notify = true
		}

		next.CurrentStatus = model.AlertStatusAlert
		next.LastAlertAt = &now
	}

	// Silence wins over everything, including escalation
	if state.SilencedAt(now) {
		decision.Silenced = true
		decision.Notify = false
	}

	return next, decision
}

// intervalElapsed reports whether enough time has passed since the last
// alert to allow another notification. A nil lastAlertAt passes trivially.
func intervalElapsed(lastAlertAt *time.Time, minInterval time.Duration, now time.Time) bool {
	if lastAlertAt == nil || minInterval <= 0 {
		return true
	}
	return now.Sub(*lastAlertAt) >= minInterval
}

// crossedEscalation reports whether the consecutive-alert count just hit
// a positive multiple of the threshold. A threshold of zero disables
// escalation entirely.
func crossedEscalation(consecutiveAlerts, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return consecutiveAlerts%threshold == 0
}
