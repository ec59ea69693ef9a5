package notify

import (
	"context"
	"fmt"
	"time"
)

// Channel type tags understood by NewChannel
const (
	ChannelTypeEmail   = "email"
	ChannelTypeSlack   = "slack"
	ChannelTypeWebhook = "webhook"
	ChannelTypeNATS    = "nats"
)

// Channel delivers one rendered message over a specific transport.
// Implementations honor ctx cancellation on every network call.
type Channel interface {
	// Name returns the configured instance name, unique per deployment
	Name() string

	// Type returns the transport type tag
	Type() string

	// Send delivers the message, returning a human-readable error on
	// failure. Send must be safe for concurrent use.
	Send(ctx context.Context, msg *Message) error

	// Close releases any transport resources held by the channel
	Close() error
}

// RetryPolicy bounds delivery attempts on one channel
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Timeout bounds each individual delivery attempt
	Timeout time.Duration
}

// Retrier builds the retry controller for this policy
func (p RetryPolicy) Retrier() Retrier {
	return Retrier{
		MaxAttempts: p.MaxAttempts,
		Backoff: &ExponentialBackoff{
			InitialDelay: p.InitialDelay,
			MaxDelay:     p.MaxDelay,
			Multiplier:   p.Multiplier,
		},
		Timeout: p.Timeout,
	}
}

// ChannelSpec describes one configured channel instance. Which fields
// apply depends on Type.
type ChannelSpec struct {
	Name string
	Type string

	// email
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string

	// slack and webhook
	WebhookURL string
	Headers    map[string]string

	// nats
	NATSURL string

	Retry RetryPolicy
}

// NewChannel builds the channel implementation selected by spec.Type
func NewChannel(spec ChannelSpec) (Channel, error) {
	switch spec.Type {
	case ChannelTypeEmail:
		return NewEmailChannel(spec)
	case ChannelTypeSlack:
		return NewSlackChannel(spec)
	case ChannelTypeWebhook:
		return NewWebhookChannel(spec)
	case ChannelTypeNATS:
		return NewNATSChannel(spec)
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", spec.Type)
	}
}
