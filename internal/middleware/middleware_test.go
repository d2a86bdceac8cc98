// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/sentinel/internal/accessgate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("expected a generated request ID")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request ID on the response")
	}
}

func TestRequestIDHonorsUpstream(t *testing.T) {
	handler := RequestID(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "upstream-id" {
		t.Errorf("expected upstream ID preserved, got %q", got)
	}
}

func TestLockdownRefusesWhileLocked(t *testing.T) {
	gate := accessgate.New(nil)
	handler := Lockdown(gate)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vendors", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("unlocked gate must pass requests through, got %d", rec.Code)
	}

	if err := gate.SetLockdown(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vendors", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while locked, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON refusal, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "lockdown") {
		t.Errorf("expected lockdown message, got %s", rec.Body.String())
	}
}

// fixedScorer returns a preset score.
type fixedScorer struct {
	score float64
	last  string
}

func (f *fixedScorer) ProcessRequest(identity string, _ time.Time) float64 {
	f.last = identity
	return f.score
}

func TestRateScorePassesBelowThreshold(t *testing.T) {
	scorer := &fixedScorer{score: 50.0}
	handler := RateScore(scorer)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// A score of exactly 50 is not an anomaly.
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 at score 50, got %d", rec.Code)
	}
}

func TestRateScoreBlocksAboveThreshold(t *testing.T) {
	scorer := &fixedScorer{score: 52.5}
	handler := RateScore(scorer)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 above score 50, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "52.5") {
		t.Errorf("expected score in refusal body, got %s", rec.Body.String())
	}
}

func TestRequestIdentityHeaderWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.10:4455"
	req.Header.Set(IdentityHeader, "user-1")

	if got := RequestIdentity(req); got != "user-1" {
		t.Errorf("expected header identity, got %q", got)
	}
}

func TestRequestIdentityFallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.10:4455"

	if got := RequestIdentity(req); got != "203.0.113.10" {
		t.Errorf("expected client IP, got %q", got)
	}
}
