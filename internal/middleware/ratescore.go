// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// IdentityHeader lets authenticated front-ends attribute requests to a
// stable identity; without it the client IP is used.
const IdentityHeader = "X-Identity"

// blockScore is the window score above which requests are refused.
const blockScore = 50.0

// RequestScorer is the engine surface the rate-score middleware needs.
type RequestScorer interface {
	ProcessRequest(identity string, now time.Time) float64
}

// rateScoreResponse is the refusal body for over-rate identities.
type rateScoreResponse struct {
	Error string  `json:"error"`
	Score float64 `json:"score"`
	Code  int     `json:"code"`
}

// RateScore records every request against the identity's sliding window
// and refuses with 429 once the window score exceeds 50.
func RateScore(scorer RequestScorer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			score := scorer.ProcessRequest(RequestIdentity(r), time.Now())
			if score > blockScore {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rateScoreResponse{
					Error: "request rate anomaly detected",
					Score: score,
					Code:  http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIdentity resolves the identity a request is attributed to:
// the X-Identity header when present, otherwise the client IP.
func RequestIdentity(r *http.Request) string {
	if identity := r.Header.Get(IdentityHeader); identity != "" {
		return identity
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
