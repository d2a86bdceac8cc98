// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package detection

import (
	"github.com/corvid-labs/sentinel/internal/scoring"
)

// minElapsedHours floors the elapsed time at one second so same-second
// logins produce a finite implied speed instead of dividing by zero.
const minElapsedHours = 1.0 / 3600.0

// TravelConfig configures the impossible-travel detector.
type TravelConfig struct {
	// MaxSpeedKmH is the maximum plausible travel speed. A transition is
	// impossible only when the implied speed strictly exceeds it.
	MaxSpeedKmH float64
}

// DefaultTravelConfig returns the default travel parameters.
func DefaultTravelConfig() TravelConfig {
	return TravelConfig{MaxSpeedKmH: 500}
}

// TravelDetector evaluates consecutive logins for implausible
// geographic transitions. Evaluation is pure: no clock, no stores.
type TravelDetector struct {
	cfg TravelConfig
}

// NewTravelDetector creates a detector. A non-positive max speed falls
// back to the default.
func NewTravelDetector(cfg TravelConfig) *TravelDetector {
	if cfg.MaxSpeedKmH <= 0 {
		cfg.MaxSpeedKmH = DefaultTravelConfig().MaxSpeedKmH
	}
	return &TravelDetector{cfg: cfg}
}

// MaxSpeedKmH returns the configured speed threshold.
func (d *TravelDetector) MaxSpeedKmH() float64 {
	return d.cfg.MaxSpeedKmH
}

// Evaluate compares the previous and current login. It returns the zero
// verdict when either event lacks coordinates or when curr does not
// strictly follow prev in time. Equality with the speed threshold is
// not impossible; only strictly exceeding it is.
func (d *TravelDetector) Evaluate(prev, curr LoginEvent) TravelVerdict {
	if !prev.HasCoordinates() || !curr.HasCoordinates() {
		return TravelVerdict{}
	}
	if !curr.Timestamp.After(prev.Timestamp) {
		return TravelVerdict{}
	}

	distanceKm := scoring.Haversine(
		prev.Latitude, prev.Longitude,
		curr.Latitude, curr.Longitude,
	)

	elapsedHours := curr.Timestamp.Sub(prev.Timestamp).Hours()
	if elapsedHours < minElapsedHours {
		elapsedHours = minElapsedHours
	}

	speed := distanceKm / elapsedHours

	return TravelVerdict{
		Impossible:   speed > d.cfg.MaxSpeedKmH,
		DistanceKm:   scoring.RoundTo2Decimals(distanceKm),
		ElapsedHours: elapsedHours,
		SpeedKmH:     scoring.RoundTo2Decimals(speed),
	}
}
