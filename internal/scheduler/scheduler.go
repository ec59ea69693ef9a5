// Package scheduler fires alert evaluations on their cron schedules.
// Each alert gets its own entry; overlapping runs of the same alert are
// skipped rather than queued, so at most one evaluation per alert is in
// flight at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/executor"
	"github.com/t77yq/sentinel/internal/model"
	"github.com/t77yq/sentinel/internal/probe"
)

// Evaluator runs one evaluation to completion; satisfied by
// executor.Orchestrator.
type Evaluator interface {
	Evaluate(ctx context.Context, req executor.Request) (*model.ExecutionResult, error)
}

// JobStatus describes one scheduled alert entry
type JobStatus struct {
	Alert    string    `json:"alert"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	PrevRun  time.Time `json:"prev_run,omitempty"`
}

// Scheduler owns the cron runtime and the per-alert entries
type Scheduler struct {
	logger    *zap.Logger
	cron      *cron.Cron
	parser    cron.Parser
	runner    probe.Runner
	evaluator Evaluator
	entries   sync.Map // alert name -> cron.EntryID
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// New creates a stopped scheduler; call Add for each alert, then Start
func New(logger *zap.Logger, runner probe.Runner, evaluator Evaluator) *Scheduler {
	log := &cronLogger{logger: logger.Named("cron")}

	// Standard five-field crontab, optional leading seconds field, and
	// @every / @daily descriptors
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	return &Scheduler{
		logger: logger.Named("scheduler"),
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(log), cron.Recover(log)),
		),
		parser:    parser,
		runner:    runner,
		evaluator: evaluator,
	}
}

// Add schedules one alert on its cron expression
func (s *Scheduler) Add(alert *model.Alert, behavior model.AlertBehavior) error {
	if alert.Schedule == "" {
		return fmt.Errorf("%s: %w", alert.Name, ErrNoSchedule)
	}
	if _, exists := s.entries.Load(alert.Name); exists {
		return fmt.Errorf("%s: %w", alert.Name, ErrAlreadyScheduled)
	}

	spec, err := s.parser.Parse(alert.Schedule)
	if err != nil {
		return fmt.Errorf("alert %s: invalid cron expression %q: %w", alert.Name, alert.Schedule, err)
	}

	entryID := s.cron.Schedule(spec, &alertJob{
		scheduler: s,
		alert:     alert,
		behavior:  behavior,
	})
	s.entries.Store(alert.Name, entryID)

	s.logger.Info("Scheduled alert",
		zap.String("alert", alert.Name),
		zap.String("expression", alert.Schedule),
		zap.Time("next_run", spec.Next(time.Now())))

	return nil
}

// Remove drops one alert's entry; a run already in flight finishes
func (s *Scheduler) Remove(alertName string) error {
	entryID, ok := s.entries.Load(alertName)
	if !ok {
		return fmt.Errorf("%s: %w", alertName, ErrNotScheduled)
	}

	s.cron.Remove(entryID.(cron.EntryID))
	s.entries.Delete(alertName)

	s.logger.Info("Unscheduled alert", zap.String("alert", alertName))
	return nil
}

// Start begins firing entries
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops firing and waits for in-flight evaluations to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// Jobs returns the current entries with their run times
func (s *Scheduler) Jobs() []JobStatus {
	var jobs []JobStatus
	s.entries.Range(func(key, value interface{}) bool {
		entry := s.cron.Entry(value.(cron.EntryID))

		status := JobStatus{
			Alert:   key.(string),
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		}
		if job, ok := entry.Job.(*alertJob); ok {
			status.Schedule = job.alert.Schedule
		}
		jobs = append(jobs, status)
		return true
	})
	return jobs
}

// alertJob implements cron.Job for one alert
type alertJob struct {
	scheduler *Scheduler
	alert     *model.Alert
	behavior  model.AlertBehavior
}

// Run implements cron.Job
func (j *alertJob) Run() {
	j.scheduler.evaluate(j.alert, j.behavior)
}

// evaluate runs the probe and feeds its outcome to the orchestrator.
// Evaluations run to completion once started, so the background context
// is deliberate; the probe enforces its own timeout.
func (s *Scheduler) evaluate(alert *model.Alert, behavior model.AlertBehavior) {
	ctx := context.Background()

	start := time.Now()
	result, err := s.runner.Run(ctx, alert)
	duration := time.Since(start)

	req := executor.Request{
		Alert:       alert,
		Duration:    duration,
		Behavior:    behavior,
		TriggeredBy: model.TriggeredByCron,
	}
	if err != nil {
		req.ExecErr = err
	} else {
		req.Result = result
	}

	if _, err := s.evaluator.Evaluate(ctx, req); err != nil {
		s.logger.Error("Evaluation failed",
			zap.String("alert", alert.Name),
			zap.Error(err))
	}
}
