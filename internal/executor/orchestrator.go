// Package executor drives single alert evaluations end to end: load the
// alert's state, apply the transition engine, dispatch notifications when
// the decision calls for it, append the execution record, and persist the
// new state. Evaluations of the same alert are serialized; distinct
// alerts run in parallel without coordination.
package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/engine"
	"github.com/t77yq/sentinel/internal/model"
	"github.com/t77yq/sentinel/internal/storage"
)

// Dispatcher delivers one notification across an alert's channels.
// Dispatch is best-effort: delivery failures are captured in the outcome,
// never returned as errors.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *model.Alert, result *model.CheckResult) *model.NotificationOutcome
}

// Observer receives one observation per completed evaluation.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveEvaluation(result *model.ExecutionResult)
}

// Request carries everything one evaluation needs. Exactly one of Result
// and ExecErr must be set: Result when the check ran and produced a
// status, ExecErr when the check itself failed to run.
type Request struct {
	Alert       *model.Alert
	Result      *model.CheckResult
	ExecErr     error
	Duration    time.Duration
	Behavior    model.AlertBehavior
	TriggeredBy model.TriggeredBy
	DryRun      bool
}

// Orchestrator composes the state store, transition engine, dispatcher,
// and ledger into the single evaluation entry point.
type Orchestrator struct {
	logger     *zap.Logger
	states     storage.StateStore
	ledger     storage.Ledger
	dispatcher Dispatcher

	// Observer, when non-nil, sees every completed evaluation
	Observer Observer

	locks sync.Map // alert name -> *sync.Mutex
}

// NewOrchestrator creates an orchestrator over the given collaborators.
// dispatcher may be nil when no channels are configured; notifications
// are then skipped and recorded as not sent.
func NewOrchestrator(logger *zap.Logger, states storage.StateStore, ledger storage.Ledger, dispatcher Dispatcher) *Orchestrator {
	return &Orchestrator{
		logger:     logger.Named("executor"),
		states:     states,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// Evaluate runs one evaluation to completion. It returns a typed error
// (*StateStoreError, *LedgerWriteError, *StatePersistError) when
// infrastructure fails; a check execution error is not an Evaluate
// error, it completes normally with an error-status result.
//
// In dry-run mode the decision logic runs identically but dispatch and
// both persistence writes are skipped.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*model.ExecutionResult, error) {
	if req.Alert == nil || req.Alert.Name == "" {
		return nil, errors.New("alert metadata is required")
	}
	if req.Result == nil && req.ExecErr == nil {
		return nil, errors.New("either a check result or an execution error is required")
	}

	unlock := o.lockAlert(req.Alert.Name)
	defer unlock()

	now := time.Now().UTC()

	state, err := o.states.Get(ctx, req.Alert.Name)
	if err != nil {
		return nil, &StateStoreError{AlertName: req.Alert.Name, Err: err}
	}

	if req.ExecErr != nil {
		return o.finishError(ctx, req, state, now)
	}
	return o.finishResult(ctx, req, state, now)
}

// finishError handles a failed check execution: the transition engine is
// skipped so infrastructure failures never disturb the dedup state.
// Only last_execution_at moves.
func (o *Orchestrator) finishError(ctx context.Context, req Request, state *model.AlertState, now time.Time) (*model.ExecutionResult, error) {
	rec := &model.ExecutionRecord{
		ExecutionID:  uuid.New().String(),
		AlertName:    req.Alert.Name,
		ExecutedAt:   now,
		DurationMS:   req.Duration.Milliseconds(),
		Status:       model.ExecutionStatusError,
		ErrorMessage: req.ExecErr.Error(),
		TriggeredBy:  req.TriggeredBy,
	}

	next := state.Clone()
	next.LastExecutionAt = &now
	next.UpdatedAt = now

	if !req.DryRun {
		if err := o.ledger.Record(ctx, rec); err != nil {
			return nil, &LedgerWriteError{AlertName: req.Alert.Name, Err: err}
		}
		if err := o.states.Save(ctx, next); err != nil {
			return nil, &StatePersistError{AlertName: req.Alert.Name, Err: err}
		}
	}

	o.logger.Warn("Check execution failed",
		zap.String("alert", req.Alert.Name),
		zap.String("triggered_by", string(req.TriggeredBy)),
		zap.Bool("dry_run", req.DryRun),
		zap.Error(req.ExecErr))

	result := &model.ExecutionResult{
		AlertName:   req.Alert.Name,
		ExecutionID: rec.ExecutionID,
		Status:      model.ExecutionStatusError,
		Duration:    req.Duration,
		Error:       req.ExecErr.Error(),
		DryRun:      req.DryRun,
	}
	o.observe(result)
	return result, nil
}

// finishResult handles a check that ran and produced a status.
func (o *Orchestrator) finishResult(ctx context.Context, req Request, state *model.AlertState, now time.Time) (*model.ExecutionResult, error) {
	next, decision := engine.Apply(state, req.Result, req.Behavior, now)

	var outcome *model.NotificationOutcome
	if decision.Notify && !req.DryRun && o.dispatcher != nil {
		o.logger.Info("Dispatching notification",
			zap.String("alert", req.Alert.Name),
			zap.Bool("escalated", decision.Escalated),
			zap.Strings("channels", req.Alert.Channels))

		outcome = o.dispatcher.Dispatch(ctx, req.Alert, req.Result)
		next.LastNotificationChannel = outcome.LastChannel
		next.LastNotificationError = outcome.FirstError

		if !outcome.Sent {
			o.logger.Warn("All notification channels failed",
				zap.String("alert", req.Alert.Name),
				zap.String("first_error", outcome.FirstError))
		}
	}

	rec := &model.ExecutionRecord{
		ExecutionID: uuid.New().String(),
		AlertName:   req.Alert.Name,
		ExecutedAt:  now,
		DurationMS:  req.Duration.Milliseconds(),
		Status:      executionStatus(req.Result.Status),
		ActualValue: req.Result.ActualValue,
		Threshold:   req.Result.Threshold,
		TriggeredBy: req.TriggeredBy,
		Context:     req.Result.Context,
	}
	if outcome != nil {
		rec.NotificationSent = outcome.Sent
		rec.NotificationError = outcome.FirstError
	}

	if !req.DryRun {
		if err := o.ledger.Record(ctx, rec); err != nil {
			return nil, &LedgerWriteError{AlertName: req.Alert.Name, Err: err}
		}
		if err := o.states.Save(ctx, next); err != nil {
			return nil, &StatePersistError{AlertName: req.Alert.Name, Err: err}
		}
	}

	o.logger.Info("Evaluation completed",
		zap.String("alert", req.Alert.Name),
		zap.String("status", string(req.Result.Status)),
		zap.Bool("should_notify", decision.Notify),
		zap.Bool("notification_sent", rec.NotificationSent),
		zap.Bool("silenced", decision.Silenced),
		zap.Int("consecutive_alerts", next.ConsecutiveAlerts),
		zap.Bool("dry_run", req.DryRun),
		zap.Duration("duration", req.Duration))

	result := &model.ExecutionResult{
		AlertName:        req.Alert.Name,
		ExecutionID:      rec.ExecutionID,
		Status:           rec.Status,
		Duration:         req.Duration,
		ShouldNotify:     decision.Notify,
		NotificationSent: rec.NotificationSent,
		DryRun:           req.DryRun,
	}
	o.observe(result)
	return result, nil
}

// lockAlert serializes evaluations per alert identity. The scheduler
// already avoids overlapping runs of one alert; this is the second layer
// protecting manual and API triggers racing a scheduled run.
func (o *Orchestrator) lockAlert(name string) func() {
	v, _ := o.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) observe(result *model.ExecutionResult) {
	if o.Observer != nil {
		o.Observer.ObserveEvaluation(result)
	}
}

// executionStatus maps a check status to the ledger status: an ALERT
// check ran successfully but reports a failure condition.
func executionStatus(status model.CheckStatus) model.ExecutionStatus {
	if status == model.CheckStatusAlert {
		return model.ExecutionStatusFailure
	}
	return model.ExecutionStatusSuccess
}
