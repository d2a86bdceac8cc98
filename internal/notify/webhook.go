// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package notify forwards published threat events to an external
// webhook. The notifier is a bus subscriber paced by a token-bucket
// limiter so a threat storm cannot flood the receiving endpoint.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/eventbus"
	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// ErrEvicted is returned when the bus removed the notifier's
// subscription; the supervisor restarts the service with a fresh one.
var ErrEvicted = errors.New("notifier subscription evicted")

// WebhookPayload is the JSON body delivered to the webhook endpoint.
type WebhookPayload struct {
	Event     detection.ThreatEvent `json:"event"`
	EventType string                `json:"event_type"`
	Source    string                `json:"source"`
	Timestamp time.Time             `json:"timestamp"`
}

// WebhookNotifier drains the bus and POSTs threat events to a webhook.
type WebhookNotifier struct {
	cfg     config.NotifierConfig
	bus     *eventbus.Bus
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookNotifier creates a notifier over the given bus.
func NewWebhookNotifier(cfg config.NotifierConfig, bus *eventbus.Bus) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:     cfg,
		bus:     bus,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// Serve subscribes to the bus and delivers events until the context is
// canceled. It satisfies suture.Service.
func (n *WebhookNotifier) Serve(ctx context.Context) error {
	sub := n.bus.Subscribe()
	defer n.bus.Unsubscribe(sub)

	logging.Info().Str("url", n.cfg.URL).Msg("webhook notifier started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.Events():
			if !ok {
				return ErrEvicted
			}
			if err := n.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := n.Deliver(ctx, event); err != nil {
				logging.Error().Err(err).Str("event_id", event.ID).
					Msg("webhook delivery failed")
			}
		}
	}
}

// Deliver POSTs a single event to the webhook endpoint.
func (n *WebhookNotifier) Deliver(ctx context.Context, event detection.ThreatEvent) error {
	payload := WebhookPayload{
		Event:     event,
		EventType: "threat_event",
		Source:    "sentinel",
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.RecordNotifierDelivery("error")
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordNotifierDelivery("rejected")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	metrics.RecordNotifierDelivery("success")
	return nil
}
