// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// rateAnomalyThreshold is the score above which a request burst is
// published as a threat.
const rateAnomalyThreshold = 50.0

// Engine orchestrates the detectors: it runs them, persists verdicts,
// and publishes threats. Detector computations never fail; only
// collaborator access can, and every such failure is logged and
// degraded rather than propagated.
type Engine struct {
	rates  *RateWindowTracker
	travel *TravelDetector
	fraud  *FraudEngine

	logins LoginHistoryStore
	risk   RiskStateStore
	sink   VerdictSink
	bus    Publisher
}

// NewEngine wires the detectors to their collaborators.
func NewEngine(
	rates *RateWindowTracker,
	travel *TravelDetector,
	fraud *FraudEngine,
	logins LoginHistoryStore,
	risk RiskStateStore,
	sink VerdictSink,
	bus Publisher,
) *Engine {
	return &Engine{
		rates:  rates,
		travel: travel,
		fraud:  fraud,
		logins: logins,
		risk:   risk,
		sink:   sink,
		bus:    bus,
	}
}

// ProcessRequest records a request sample for the identity and returns
// its window score. Scores above 50 publish a RATE_ANOMALY threat.
func (e *Engine) ProcessRequest(identity string, now time.Time) float64 {
	score := e.rates.RecordAndScore(identity, now)
	metrics.RecordSignal("request")
	metrics.ObserveScore("rate", score)

	if score > rateAnomalyThreshold {
		event := ThreatEvent{
			ID:       uuid.New().String(),
			Kind:     ThreatRateAnomaly,
			Severity: SeverityCritical,
			Identity: identity,
			Message: fmt.Sprintf("request rate anomaly for %s: window score %.1f",
				identity, score),
			Timestamp: now,
		}
		e.publish(event)

		logging.Warn().
			Str("identity", identity).
			Float64("score", score).
			Msg("rate anomaly detected")
	}

	return score
}

// ProcessLogin evaluates the login against the identity's previous one.
// A missing or unreadable previous login yields the zero verdict. On an
// impossible transition the identity's risk state is elevated, the
// verdict persisted, and an IMPOSSIBLE_TRAVEL threat published.
func (e *Engine) ProcessLogin(ctx context.Context, curr LoginEvent) TravelVerdict {
	metrics.RecordSignal("login")

	prev, err := e.logins.LastLogin(ctx, curr.Identity)
	if err != nil {
		logging.Warn().Err(err).Str("identity", curr.Identity).
			Msg("login history unavailable, treating login as first")
		prev = nil
	}
	if prev == nil {
		return TravelVerdict{}
	}

	verdict := e.travel.Evaluate(*prev, curr)
	if !verdict.Impossible {
		return verdict
	}

	reason := fmt.Sprintf("impossible travel at %.2f km/h", verdict.SpeedKmH)
	if err := e.risk.SetElevated(ctx, curr.Identity, reason); err != nil {
		logging.Error().Err(err).Str("identity", curr.Identity).
			Msg("failed to elevate risk state")
	}
	if err := e.sink.SaveTravelVerdict(ctx, curr, verdict); err != nil {
		logging.Error().Err(err).Str("identity", curr.Identity).
			Msg("failed to persist travel verdict")
	}

	metadata, _ := json.Marshal(verdict) //nolint:errcheck // struct of floats cannot fail
	event := ThreatEvent{
		ID:       uuid.New().String(),
		Kind:     ThreatImpossibleTravel,
		Severity: SeverityCritical,
		Identity: curr.Identity,
		Message: fmt.Sprintf(
			"impossible travel for %s: %s (%.4f, %.4f) to %s (%.4f, %.4f), %.2f km in %.2fh (%.2f km/h)",
			curr.Identity,
			prev.SourceAddr, prev.Latitude, prev.Longitude,
			curr.SourceAddr, curr.Latitude, curr.Longitude,
			verdict.DistanceKm, verdict.ElapsedHours, verdict.SpeedKmH,
		),
		Metadata:  metadata,
		Timestamp: curr.Timestamp,
	}
	if err := e.sink.SaveThreatEvent(ctx, event); err != nil {
		logging.Error().Err(err).Str("identity", curr.Identity).
			Msg("failed to persist threat event")
	}
	e.publish(event)

	logging.Warn().
		Str("identity", curr.Identity).
		Float64("speed_kmh", verdict.SpeedKmH).
		Float64("distance_km", verdict.DistanceKm).
		Msg("impossible travel detected")

	return verdict
}

// ProcessExtraction scores a financial-document extraction. Suspicious
// verdicts are persisted and published as FRAUD_ANOMALY threats.
func (e *Engine) ProcessExtraction(ctx context.Context, extraction Extraction) RiskVerdict {
	metrics.RecordSignal("extraction")

	verdict := e.fraud.Score(ctx, extraction)
	metrics.ObserveScore("fraud", float64(verdict.Score))

	if !verdict.Suspicious {
		return verdict
	}

	if err := e.sink.SaveRiskVerdict(ctx, extraction, verdict); err != nil {
		logging.Error().Err(err).Str("vendor", extraction.VendorName).
			Msg("failed to persist risk verdict")
	}

	metadata, _ := json.Marshal(verdict) //nolint:errcheck // fixed shape cannot fail
	event := ThreatEvent{
		ID:       uuid.New().String(),
		Kind:     ThreatFraudAnomaly,
		Severity: SeverityCritical,
		Identity: extraction.VendorName,
		Message: fmt.Sprintf("suspicious document from %q scored %d",
			extraction.VendorName, verdict.Score),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	if err := e.sink.SaveThreatEvent(ctx, event); err != nil {
		logging.Error().Err(err).Str("vendor", extraction.VendorName).
			Msg("failed to persist threat event")
	}
	e.publish(event)

	logging.Warn().
		Str("vendor", extraction.VendorName).
		Int("score", verdict.Score).
		Msg("fraud anomaly detected")

	return verdict
}

func (e *Engine) publish(event ThreatEvent) {
	e.bus.Publish(event)
	metrics.RecordThreat(string(event.Kind))
}
