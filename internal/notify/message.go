// Package notify delivers alert notifications over configured channels,
// each with its own bounded retry, backoff, and per-attempt timeout.
// Channels are independent: one failing never blocks the others.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/t77yq/sentinel/internal/model"
)

// Message is one rendered notification. It is built once per dispatch;
// each channel formats it for its own transport.
type Message struct {
	AlertName   string            `json:"alert_name"`
	Description string            `json:"description,omitempty"`
	Status      model.CheckStatus `json:"status"`
	ActualValue *float64          `json:"actual_value,omitempty"`
	Threshold   *float64          `json:"threshold,omitempty"`
	Context     model.Context     `json:"context,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewMessage renders the shared notification content for one check result
func NewMessage(alert *model.Alert, result *model.CheckResult, now time.Time) *Message {
	return &Message{
		AlertName:   alert.Name,
		Description: alert.Description,
		Status:      result.Status,
		ActualValue: result.ActualValue,
		Threshold:   result.Threshold,
		Context:     result.Context,
		Timestamp:   now,
	}
}

// Subject returns a one-line summary suitable for mail subjects
func (m *Message) Subject() string {
	return fmt.Sprintf("[%s] %s", m.Status, m.AlertName)
}

// Body returns the plain-text rendering shared by text transports
func (m *Message) Body() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Alert: %s\n", m.AlertName)
	if m.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", m.Description)
	}
	fmt.Fprintf(&b, "Status: %s\n", m.Status)
	if m.ActualValue != nil {
		fmt.Fprintf(&b, "Actual value: %s\n", formatNumber(*m.ActualValue))
	}
	if m.Threshold != nil {
		fmt.Fprintf(&b, "Threshold: %s\n", formatNumber(*m.Threshold))
	}
	fmt.Fprintf(&b, "Time: %s\n", m.Timestamp.Format(time.RFC3339))

	if len(m.Context) > 0 {
		b.WriteString("\nContext:\n")
		for _, f := range m.Context {
			fmt.Fprintf(&b, "  %s: %v\n", f.Key, f.Value)
		}
	}

	return b.String()
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
