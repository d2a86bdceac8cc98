// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package middleware provides the HTTP middleware chain: request IDs,
// Prometheus instrumentation, the lockdown gate, and per-identity rate
// scoring.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/corvid-labs/sentinel/internal/logging"
)

// RequestIDHeader carries the request ID to and from clients.
const RequestIDHeader = "X-Request-ID"

// RequestID generates a unique ID for each request, honoring one set by
// an upstream proxy, and adds it to the response header and the request
// context for structured logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
