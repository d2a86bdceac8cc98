// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package detection

import (
	"context"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// CoordinateEpsilon is the threshold for considering coordinates as
// effectively zero. A coordinate pair is "unknown" (sentinel value 0,0)
// if both latitude and longitude are within this epsilon of zero.
// 1e-7 degrees is about 1.1cm at the equator, well below GPS accuracy.
const CoordinateEpsilon = 1e-7

// IsUnknownLocation returns true if the coordinates represent an unknown
// location. Uses epsilon comparison instead of direct float equality.
func IsUnknownLocation(lat, lon float64) bool {
	return math.Abs(lat) < CoordinateEpsilon && math.Abs(lon) < CoordinateEpsilon
}

// ThreatKind identifies the class of a detected threat.
type ThreatKind string

const (
	// ThreatRateAnomaly flags identities exceeding the request-rate window.
	ThreatRateAnomaly ThreatKind = "RATE_ANOMALY"

	// ThreatImpossibleTravel flags implausible geographic transitions
	// between consecutive logins.
	ThreatImpossibleTravel ThreatKind = "IMPOSSIBLE_TRAVEL"

	// ThreatFraudAnomaly flags financial documents scored as suspicious.
	ThreatFraudAnomaly ThreatKind = "FRAUD_ANOMALY"
)

// Severity indicates the severity level of a threat or alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ThreatEvent is the unit published on the event bus when a detector
// crosses its threshold.
type ThreatEvent struct {
	ID        string          `json:"id"`
	Kind      ThreatKind      `json:"kind"`
	Severity  Severity        `json:"severity"`
	Identity  string          `json:"identity"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// LoginEvent is a single observed login with optional geolocation.
// A (0,0) coordinate pair means geolocation was unavailable.
type LoginEvent struct {
	Identity   string    `json:"identity"`
	SourceAddr string    `json:"source_addr"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasCoordinates reports whether the event carries usable geolocation.
func (e LoginEvent) HasCoordinates() bool {
	return !IsUnknownLocation(e.Latitude, e.Longitude)
}

// TravelVerdict is the outcome of evaluating two consecutive logins.
// The zero value is the non-impossible "no verdict" result.
type TravelVerdict struct {
	Impossible   bool    `json:"impossible"`
	DistanceKm   float64 `json:"distance_km"`
	ElapsedHours float64 `json:"elapsed_hours"`
	SpeedKmH     float64 `json:"speed_kmh"`
}

// Extraction holds the fields pulled from a financial document that the
// fraud heuristics inspect. Missing fields degrade to zero values.
type Extraction struct {
	VendorName      string  `json:"vendor_name"`
	Amount          float64 `json:"amount"`
	ContactEmail    string  `json:"contact_email"`
	BankFingerprint string  `json:"bank_fingerprint"`
	Text            string  `json:"text"`
}

// Alert is a single fired fraud rule, recorded in firing order.
type Alert struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RiskVerdict is the outcome of scoring an extraction.
type RiskVerdict struct {
	Score      int     `json:"score"`
	Suspicious bool    `json:"suspicious"`
	Alerts     []Alert `json:"alerts"`
}

// VendorRecord is a known vendor in the ledger.
type VendorRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BankFingerprint string    `json:"bank_fingerprint"`
	CreatedAt       time.Time `json:"created_at"`
}

// VendorLedger looks up known vendors and their billing history.
// FindByName returns (nil, nil) when the vendor is unknown; callers
// treat that as the cold-start branch, never as an error.
type VendorLedger interface {
	FindByName(ctx context.Context, name string) (*VendorRecord, error)

	// HistoricalAverage returns the mean billed amount for a vendor.
	// Vendors with no recorded bills report the configured default.
	HistoricalAverage(ctx context.Context, vendorID string) (float64, error)
}

// LoginHistoryStore reads and records per-identity login history.
// LastLogin returns (nil, nil) for an identity with no previous login.
type LoginHistoryStore interface {
	LastLogin(ctx context.Context, identity string) (*LoginEvent, error)
	RecordLogin(ctx context.Context, event LoginEvent) error
}

// RiskStateStore marks identities as risk-elevated.
type RiskStateStore interface {
	SetElevated(ctx context.Context, identity, reason string) error
}

// VerdictSink persists detector outcomes.
type VerdictSink interface {
	SaveRiskVerdict(ctx context.Context, extraction Extraction, verdict RiskVerdict) error
	SaveTravelVerdict(ctx context.Context, curr LoginEvent, verdict TravelVerdict) error
	SaveThreatEvent(ctx context.Context, event ThreatEvent) error
}

// Publisher fans detected threats out to live subscribers.
type Publisher interface {
	Publish(event ThreatEvent)
}
