// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package middleware

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/corvid-labs/sentinel/internal/accessgate"
)

// lockdownResponse is the uniform refusal body for gated routes.
type lockdownResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Lockdown refuses mutating requests with 503 while the gate is locked.
// Apply it to every mutating route; read routes stay open.
func Lockdown(gate *accessgate.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.IsLocked() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(lockdownResponse{
					Error: "system is in lockdown: mutating operations are disabled",
					Code:  http.StatusServiceUnavailable,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
