package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// alertStreamName is the JetStream stream holding published alerts
	alertStreamName = "ALERTS"
	// alertSubjectRoot prefixes the per-alert event subjects
	alertSubjectRoot = "alerts.events"
)

// NATSChannel publishes notifications to JetStream so downstream
// consumers can react to alert events off the bus
type NATSChannel struct {
	name string
	// nc is owned when the constructor dialed it; nil when the caller
	// supplied the JetStream context
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewNATSChannel dials the configured server and ensures the alert
// stream exists
func NewNATSChannel(spec ChannelSpec) (*NATSChannel, error) {
	if spec.NATSURL == "" {
		return nil, fmt.Errorf("nats channel %s: server URL is required", spec.Name)
	}

	nc, err := nats.Connect(spec.NATSURL,
		nats.Name("sentinel"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats channel %s: failed to connect: %w", spec.Name, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats channel %s: failed to create JetStream context: %w", spec.Name, err)
	}

	ch := &NATSChannel{name: spec.Name, nc: nc, js: js}
	if err := ch.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return ch, nil
}

// NewNATSChannelWithJetStream wraps an existing JetStream context; the
// caller keeps ownership of the underlying connection
func NewNATSChannelWithJetStream(name string, js nats.JetStreamContext) (*NATSChannel, error) {
	ch := &NATSChannel{name: name, js: js}
	if err := ch.ensureStream(); err != nil {
		return nil, err
	}
	return ch, nil
}

// ensureStream creates the alert stream if it does not exist yet
func (n *NATSChannel) ensureStream() error {
	_, err := n.js.AddStream(&nats.StreamConfig{
		Name:     alertStreamName,
		Subjects: []string{alertSubjectRoot + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create alert stream: %w", err)
	}
	return nil
}

// Name implements Channel.Name
func (n *NATSChannel) Name() string { return n.name }

// Type implements Channel.Type
func (n *NATSChannel) Type() string { return ChannelTypeNATS }

// Send implements Channel.Send
func (n *NATSChannel) Send(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", alertSubjectRoot, subjectToken(msg.AlertName))
	if _, err := n.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close implements Channel.Close
func (n *NATSChannel) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

// subjectToken makes an alert name safe to use as a NATS subject token
func subjectToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '*', '>':
			return '_'
		}
		return r
	}, name)
}
