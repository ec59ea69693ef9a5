package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookChannel POSTs the message JSON to an arbitrary HTTP endpoint.
// Any 2xx response counts as delivered.
type WebhookChannel struct {
	name       string
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// NewWebhookChannel creates a webhook channel from its spec
func NewWebhookChannel(spec ChannelSpec) (*WebhookChannel, error) {
	if spec.WebhookURL == "" {
		return nil, fmt.Errorf("webhook channel %s: URL is required", spec.Name)
	}

	return &WebhookChannel{
		name:    spec.Name,
		url:     spec.WebhookURL,
		headers: spec.Headers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name implements Channel.Name
func (w *WebhookChannel) Name() string { return w.name }

// Type implements Channel.Type
func (w *WebhookChannel) Type() string { return ChannelTypeWebhook }

// Send implements Channel.Send
func (w *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range w.headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close implements Channel.Close
func (w *WebhookChannel) Close() error { return nil }
