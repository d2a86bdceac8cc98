// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package metrics exposes Prometheus instrumentation for the engine:
// signal throughput, detector scores, threat fan-out, bus subscribers,
// lockdown state, database access, and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsProcessed counts signals by kind: request, login, extraction.
	SignalsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_signals_processed_total",
			Help: "Total number of signals processed by kind",
		},
		[]string{"kind"},
	)

	// DetectorScores observes raw detector scores by detector.
	DetectorScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_detector_score",
			Help:    "Distribution of detector scores",
			Buckets: []float64{0, 10, 25, 50, 70, 85, 95, 100, 150, 300},
		},
		[]string{"detector"},
	)

	// ThreatsPublished counts threats published on the bus by kind.
	ThreatsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_threats_published_total",
			Help: "Total number of threat events published",
		},
		[]string{"kind"},
	)

	// BusSubscribers tracks the current number of bus subscribers.
	BusSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_bus_subscribers",
			Help: "Current number of event bus subscribers",
		},
	)

	// BusDroppedSubscribers counts subscribers removed for full buffers.
	BusDroppedSubscribers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_bus_dropped_subscribers_total",
			Help: "Total number of subscribers removed for undrained buffers",
		},
	)

	// LockdownActive is 1 while the access gate is locked.
	LockdownActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_lockdown_active",
			Help: "Whether the global lockdown is active (1) or not (0)",
		},
	)

	// DBQueryDuration observes DuckDB query latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBQueryErrors counts failed database queries.
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_db_query_errors_total",
			Help: "Total number of failed database queries",
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// WebsocketClients tracks connected threat-stream clients.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	// NotifierDeliveries counts webhook notifier outcomes.
	NotifierDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifier_deliveries_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordSignal increments the processed-signal counter for a kind.
func RecordSignal(kind string) {
	SignalsProcessed.WithLabelValues(kind).Inc()
}

// ObserveScore records a detector score.
func ObserveScore(detector string, score float64) {
	DetectorScores.WithLabelValues(detector).Observe(score)
}

// RecordThreat increments the published-threat counter for a kind.
func RecordThreat(kind string) {
	ThreatsPublished.WithLabelValues(kind).Inc()
}

// SetLockdown records the current lockdown state.
func SetLockdown(active bool) {
	if active {
		LockdownActive.Set(1)
	} else {
		LockdownActive.Set(0)
	}
}

// RecordDBQuery records a database query duration and outcome.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest records an API request metric.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordNotifierDelivery records a webhook delivery outcome.
func RecordNotifierDelivery(outcome string) {
	NotifierDeliveries.WithLabelValues(outcome).Inc()
}
