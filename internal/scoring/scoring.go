// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package scoring provides the pure numeric primitives shared by the
// detectors: great-circle distance, score clamping, and weighted rule
// combination. Everything here is stateless and never fails.
package scoring

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometers between
// two coordinate pairs using the haversine formula.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Clamp restricts v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampScore restricts a risk score to the canonical 0-100 range and
// truncates it to an integer.
func ClampScore(v float64) int {
	return int(Clamp(v, 0, 100))
}

// WeightedSum combines rule scores with per-rule weights. Extra entries
// in either slice are ignored.
func WeightedSum(scores, weights []float64) float64 {
	n := len(scores)
	if len(weights) < n {
		n = len(weights)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += scores[i] * weights[i]
	}
	return sum
}

// RoundTo2Decimals rounds a float64 to 2 decimal places for reporting.
func RoundTo2Decimals(f float64) float64 {
	return math.Round(f*100) / 100
}
