package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackChannel posts notifications to a Slack incoming webhook
type SlackChannel struct {
	name       string
	webhookURL string
	httpClient *http.Client
}

// NewSlackChannel creates a Slack channel from its spec
func NewSlackChannel(spec ChannelSpec) (*SlackChannel, error) {
	if spec.WebhookURL == "" {
		return nil, fmt.Errorf("slack channel %s: webhook URL is required", spec.Name)
	}
	if !strings.HasPrefix(spec.WebhookURL, "https://") && !strings.HasPrefix(spec.WebhookURL, "http://") {
		return nil, fmt.Errorf("slack channel %s: webhook URL must be HTTP(S)", spec.Name)
	}

	return &SlackChannel{
		name:       spec.Name,
		webhookURL: spec.WebhookURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name implements Channel.Name
func (s *SlackChannel) Name() string { return s.name }

// Type implements Channel.Type
func (s *SlackChannel) Type() string { return ChannelTypeSlack }

// Send implements Channel.Send
func (s *SlackChannel) Send(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(s.buildPayload(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close implements Channel.Close
func (s *SlackChannel) Close() error { return nil }

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// buildPayload builds the webhook payload with a color-coded attachment
func (s *SlackChannel) buildPayload(msg *Message) slackPayload {
	color := "good"
	if msg.Status != "OK" {
		color = "danger"
	}

	text := fmt.Sprintf(":rotating_light: *%s*", msg.AlertName)
	if msg.Description != "" {
		text += "\n" + msg.Description
	}

	fields := []slackField{
		{Title: "Status", Value: string(msg.Status), Short: true},
	}
	if msg.ActualValue != nil {
		fields = append(fields, slackField{
			Title: "Actual value",
			Value: formatNumber(*msg.ActualValue),
			Short: true,
		})
	}
	if msg.Threshold != nil {
		fields = append(fields, slackField{
			Title: "Threshold",
			Value: formatNumber(*msg.Threshold),
			Short: true,
		})
	}
	for _, f := range msg.Context {
		fields = append(fields, slackField{
			Title: f.Key,
			Value: fmt.Sprintf("%v", f.Value),
			Short: true,
		})
	}

	return slackPayload{
		Text: text,
		Attachments: []slackAttachment{
			{
				Color:  color,
				Fields: fields,
				Footer: "sentinel",
				TS:     msg.Timestamp.Unix(),
			},
		},
	}
}
