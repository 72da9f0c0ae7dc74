package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Headers set on every webhook delivery.
const (
	headerEventType = "X-Arcanalyse-Event"
	headerTargetID  = "X-Arcanalyse-Target"
)

const maxErrorSnippet = 512

// httpPublisher posts status events to a webhook.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := resty.New().
		SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json")
	if len(cfg.HTTP.Headers) > 0 {
		client.SetHeaders(cfg.HTTP.Headers)
	}

	return &httpPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish delivers evt. Any non-2xx answer, redirects included, is a failure.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader(headerEventType, evt.Type).
		SetHeader(headerTargetID, evt.TargetID).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"target_id":    evt.TargetID,
		"status":       resp.StatusCode(),
		"elapsed_ms":   resp.Time().Milliseconds(),
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) > maxErrorSnippet {
		body = body[:maxErrorSnippet]
	}
	return strings.TrimSpace(string(body))
}
