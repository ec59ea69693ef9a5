package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/model"
)

// DispatchObserver receives one observation per channel delivery.
// Implementations must be safe for concurrent use.
type DispatchObserver interface {
	ObserveNotification(channel string, attempts int, success bool)
}

// Dispatcher fans one notification out to an alert's channels. Channels
// are attempted independently and in the alert's configured order; a
// failure on one never aborts the others, and delivery errors are
// captured in the returned outcome instead of propagating.
type Dispatcher struct {
	logger *zap.Logger

	// Observer, when non-nil, is notified of every channel outcome
	Observer DispatchObserver

	mu       sync.RWMutex
	channels map[string]*registeredChannel
}

type registeredChannel struct {
	channel Channel
	retrier Retrier
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		channels: make(map[string]*registeredChannel),
	}
}

// Register adds a channel under its configured name, replacing any
// previous registration, together with the retry policy governing it
func (d *Dispatcher) Register(ch Channel, retrier Retrier) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.channels[ch.Name()] = &registeredChannel{
		channel: ch,
		retrier: retrier,
	}
}

// Names returns the registered channel names
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	return names
}

// Dispatch renders the message once and delivers it to every channel the
// alert names. The outcome reports Sent=true when at least one channel
// succeeded; FirstError keeps the first failing channel's error even if
// a later channel succeeds.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *model.Alert, result *model.CheckResult) *model.NotificationOutcome {
	msg := NewMessage(alert, result, time.Now().UTC())
	outcome := &model.NotificationOutcome{}

	for _, name := range alert.Channels {
		attempt := d.deliver(ctx, name, alert.Name, msg)

		if attempt.Success {
			outcome.Sent = true
			outcome.LastChannel = name
		} else if outcome.FirstError == "" {
			outcome.FirstError = attempt.Error
		}
		outcome.Attempts = append(outcome.Attempts, attempt)

		if d.Observer != nil {
			d.Observer.ObserveNotification(name, attempt.Attempt, attempt.Success)
		}
	}

	return outcome
}

// deliver runs the per-channel retry loop for one channel
func (d *Dispatcher) deliver(ctx context.Context, name, alertName string, msg *Message) model.NotificationAttempt {
	d.mu.RLock()
	entry := d.channels[name]
	d.mu.RUnlock()

	if entry == nil {
		d.logger.Error("Notification channel not configured",
			zap.String("alert", alertName),
			zap.String("channel", name))
		return model.NotificationAttempt{
			Channel: name,
			Error:   "channel not configured: " + name,
		}
	}

	attempts, err := entry.retrier.Do(ctx, func(ctx context.Context) error {
		return entry.channel.Send(ctx, msg)
	})

	if err != nil {
		d.logger.Error("Notification delivery failed",
			zap.String("alert", alertName),
			zap.String("channel", name),
			zap.String("type", entry.channel.Type()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return model.NotificationAttempt{
			Channel: name,
			Attempt: attempts,
			Error:   err.Error(),
		}
	}

	d.logger.Info("Notification delivered",
		zap.String("alert", alertName),
		zap.String("channel", name),
		zap.String("type", entry.channel.Type()),
		zap.Int("attempts", attempts))

	return model.NotificationAttempt{
		Channel: name,
		Attempt: attempts,
		Success: true,
	}
}

// Close releases every registered channel's transport resources
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for name, entry := range d.channels {
		if err := entry.channel.Close(); err != nil {
			d.logger.Error("Failed to close channel",
				zap.String("channel", name),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
