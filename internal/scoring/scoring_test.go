// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package scoring

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: 51.5, lon1: -0.12, lat2: 51.5, lon2: -0.12,
			wantKm: 0, tolerance: 0.001,
		},
		{
			name: "london to paris",
			lat1: 51.5074, lon1: -0.1278, lat2: 48.8566, lon2: 2.3522,
			wantKm: 343.5, tolerance: 2.0,
		},
		{
			name: "moscow region hop",
			lat1: 50.0, lon1: 30.0, lat2: 56.0, lon2: 37.0,
			wantKm: 1250.0, tolerance: 15.0,
		},
		{
			name: "antipodal-ish",
			lat1: 0, lon1: 0, lat2: 0, lon2: 180,
			wantKm: math.Pi * 6371.0, tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("Haversine() = %.2f km, want %.2f km (±%.2f)",
					got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	ab := Haversine(50.0, 30.0, 56.0, 37.0)
	ba := Haversine(56.0, 37.0, 50.0, 30.0)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %.6f vs %.6f", ab, ba)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{-5, 0, 100, 0},
		{50, 0, 100, 50},
		{150, 0, 100, 100},
		{0, 0, 100, 0},
		{100, 0, 100, 100},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{-10, 0},
		{0, 0},
		{70.5, 70},
		{100, 100},
		{185, 100},
	}

	for _, tt := range tests {
		if got := ClampScore(tt.v); got != tt.want {
			t.Errorf("ClampScore(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestWeightedSum(t *testing.T) {
	tests := []struct {
		name    string
		scores  []float64
		weights []float64
		want    float64
	}{
		{"empty", nil, nil, 0},
		{"unit weights", []float64{10, 30, 40}, []float64{1, 1, 1}, 80},
		{"halved", []float64{50, 50}, []float64{0.5, 0.5}, 50},
		{"extra scores ignored", []float64{10, 20, 30}, []float64{1}, 10},
		{"extra weights ignored", []float64{10}, []float64{1, 2, 3}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightedSum(tt.scores, tt.weights); got != tt.want {
				t.Errorf("WeightedSum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundTo2Decimals(t *testing.T) {
	if got := RoundTo2Decimals(1249.9876); got != 1249.99 {
		t.Errorf("RoundTo2Decimals() = %v, want 1249.99", got)
	}
}
