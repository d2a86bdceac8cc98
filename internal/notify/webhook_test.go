// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/corvid-labs/sentinel/internal/config"
	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/eventbus"
)

func notifierConfig(url string) config.NotifierConfig {
	return config.NotifierConfig{
		Enabled:       true,
		URL:           url,
		RatePerSecond: 100,
		Burst:         10,
		Timeout:       2 * time.Second,
	}
}

func TestDeliverPostsPayload(t *testing.T) {
	var (
		mu       sync.Mutex
		received []WebhookPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewWebhookNotifier(notifierConfig(server.URL), eventbus.New(8))

	event := detection.ThreatEvent{
		ID:       "evt-1",
		Kind:     detection.ThreatFraudAnomaly,
		Severity: detection.SeverityCritical,
		Identity: "Acme Corp",
	}
	if err := n.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(received))
	}
	if received[0].Event.ID != "evt-1" {
		t.Errorf("expected event evt-1, got %s", received[0].Event.ID)
	}
	if received[0].Source != "sentinel" {
		t.Errorf("expected source sentinel, got %s", received[0].Source)
	}
}

func TestDeliverRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(notifierConfig(server.URL), eventbus.New(8))

	if err := n.Deliver(context.Background(), detection.ThreatEvent{ID: "evt-1"}); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestServeDrainsBus(t *testing.T) {
	got := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		got <- p.Event.ID
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	bus := eventbus.New(8)
	n := NewWebhookNotifier(notifierConfig(server.URL), bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Serve(ctx) }()

	// Wait for the notifier's subscription to register.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(detection.ThreatEvent{ID: "evt-1"})

	select {
	case id := <-got:
		if id != "evt-1" {
			t.Errorf("expected evt-1 delivered, got %s", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected delivery before timeout")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}
