// Package notify delivers pipeline events to external recipients. Delivery is
// fire-and-forget: callers never observe a delivery failure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sumire/hiring/internal/domain"
)

// Log writes events to the structured log.
type Log struct{}

// Notify logs the event.
func (Log) Notify(_ context.Context, event domain.Event) {
	slog.Info("pipeline event",
		"type", event.Type,
		"entity_id", event.EntityID,
		"actor_id", event.ActorID,
		"recipients", len(event.Recipients),
	)
}

// Webhook posts events as JSON to a configured URL in the background.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Notify schedules delivery and returns immediately. The request is detached
// from ctx cancellation so a finished HTTP request does not abort it.
func (w *Webhook) Notify(ctx context.Context, event domain.Event) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
		defer cancel()
		if err := w.send(sendCtx, event); err != nil {
			slog.Warn("webhook delivery failed", "type", event.Type, "entity_id", event.EntityID, "error", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) send(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
