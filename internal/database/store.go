// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// FindByName looks a vendor up case-insensitively. An unknown vendor is
// (nil, nil), never an error.
func (db *DB) FindByName(ctx context.Context, name string) (*detection.VendorRecord, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, bank_fingerprint, created_at
		 FROM vendors WHERE lower(name) = lower(?)`, name)

	var rec detection.VendorRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.BankFingerprint, &rec.CreatedAt)
	metrics.RecordDBQuery("find_vendor", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor %q: %w", name, err)
	}
	return &rec, nil
}

// HistoricalAverage returns the mean billed amount for a vendor, or 0
// when the vendor has no bills; callers substitute their default.
func (db *DB) HistoricalAverage(ctx context.Context, vendorID string) (float64, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(amount), 0) FROM bills WHERE vendor_id = ?`, vendorID)

	var avg float64
	err := row.Scan(&avg)
	metrics.RecordDBQuery("historical_average", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("historical average for %q: %w", vendorID, err)
	}
	return avg, nil
}

// CreateVendor registers a vendor and returns the stored record.
func (db *DB) CreateVendor(ctx context.Context, name, bankFingerprint string) (*detection.VendorRecord, error) {
	if err := db.checkWritable(); err != nil {
		return nil, err
	}

	rec := detection.VendorRecord{
		ID:              uuid.New().String(),
		Name:            name,
		BankFingerprint: bankFingerprint,
		CreatedAt:       time.Now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vendors (id, name, bank_fingerprint, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.BankFingerprint, rec.CreatedAt)
	metrics.RecordDBQuery("create_vendor", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("create vendor %q: %w", name, err)
	}
	return &rec, nil
}

// ListVendors returns all vendors ordered by name.
func (db *DB) ListVendors(ctx context.Context) ([]detection.VendorRecord, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, bank_fingerprint, created_at FROM vendors ORDER BY name`)
	metrics.RecordDBQuery("list_vendors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []detection.VendorRecord
	for rows.Next() {
		var rec detection.VendorRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.BankFingerprint, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}

// RecordBill appends a billed amount to a vendor's history.
func (db *DB) RecordBill(ctx context.Context, vendorID string, amount float64) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO bills (id, vendor_id, amount, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), vendorID, amount, time.Now().UTC())
	metrics.RecordDBQuery("record_bill", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record bill for %q: %w", vendorID, err)
	}
	return nil
}

// LastLogin returns the identity's most recent login, or (nil, nil) for
// an identity never seen before.
func (db *DB) LastLogin(ctx context.Context, identity string) (*detection.LoginEvent, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT identity, source_addr, latitude, longitude, ts
		 FROM logins WHERE identity = ? ORDER BY ts DESC LIMIT 1`, identity)

	var ev detection.LoginEvent
	err := row.Scan(&ev.Identity, &ev.SourceAddr, &ev.Latitude, &ev.Longitude, &ev.Timestamp)
	metrics.RecordDBQuery("last_login", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last login for %q: %w", identity, err)
	}
	return &ev, nil
}

// RecordLogin appends a login to the identity's history.
func (db *DB) RecordLogin(ctx context.Context, event detection.LoginEvent) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO logins (identity, source_addr, latitude, longitude, ts) VALUES (?, ?, ?, ?, ?)`,
		event.Identity, event.SourceAddr, event.Latitude, event.Longitude, event.Timestamp)
	metrics.RecordDBQuery("record_login", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record login for %q: %w", event.Identity, err)
	}
	return nil
}

// SetElevated marks an identity's risk state elevated.
func (db *DB) SetElevated(ctx context.Context, identity, reason string) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO risk_states (identity, elevated, reason, updated_at)
		 VALUES (?, true, ?, ?)`,
		identity, reason, time.Now().UTC())
	metrics.RecordDBQuery("set_elevated", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("elevate risk state for %q: %w", identity, err)
	}
	return nil
}

// IsElevated reports whether an identity's risk state is elevated.
func (db *DB) IsElevated(ctx context.Context, identity string) (bool, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT elevated FROM risk_states WHERE identity = ?`, identity)

	var elevated bool
	err := row.Scan(&elevated)
	metrics.RecordDBQuery("is_elevated", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("risk state for %q: %w", identity, err)
	}
	return elevated, nil
}

// SaveRiskVerdict persists a fraud scoring outcome.
func (db *DB) SaveRiskVerdict(ctx context.Context, extraction detection.Extraction, verdict detection.RiskVerdict) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	alerts, err := json.Marshal(verdict.Alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO risk_verdicts (id, vendor_name, amount, score, suspicious, alerts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), extraction.VendorName, extraction.Amount,
		verdict.Score, verdict.Suspicious, string(alerts), time.Now().UTC())
	metrics.RecordDBQuery("save_risk_verdict", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save risk verdict: %w", err)
	}
	return nil
}

// SaveTravelVerdict persists a travel evaluation outcome.
func (db *DB) SaveTravelVerdict(ctx context.Context, curr detection.LoginEvent, verdict detection.TravelVerdict) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO travel_verdicts
		 (identity, source_addr, latitude, longitude, distance_km, elapsed_hours, speed_kmh, impossible, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		curr.Identity, curr.SourceAddr, curr.Latitude, curr.Longitude,
		verdict.DistanceKm, verdict.ElapsedHours, verdict.SpeedKmH,
		verdict.Impossible, curr.Timestamp)
	metrics.RecordDBQuery("save_travel_verdict", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save travel verdict: %w", err)
	}
	return nil
}

// SaveThreatEvent persists a published threat event.
func (db *DB) SaveThreatEvent(ctx context.Context, event detection.ThreatEvent) error {
	if err := db.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO threat_events (id, kind, severity, identity, message, metadata, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.Kind), string(event.Severity), event.Identity,
		event.Message, string(event.Metadata), event.Timestamp)
	metrics.RecordDBQuery("save_threat_event", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save threat event: %w", err)
	}
	return nil
}

// RecentThreatEvents returns the most recent threat events, newest first.
func (db *DB) RecentThreatEvents(ctx context.Context, limit int) ([]detection.ThreatEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, kind, severity, identity, message, metadata, ts
		 FROM threat_events ORDER BY ts DESC LIMIT ?`, limit)
	metrics.RecordDBQuery("recent_threat_events", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("recent threat events: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []detection.ThreatEvent
	for rows.Next() {
		var (
			ev             detection.ThreatEvent
			kind, severity string
			metadata       string
		)
		if err := rows.Scan(&ev.ID, &kind, &severity, &ev.Identity, &ev.Message, &metadata, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan threat event: %w", err)
		}
		ev.Kind = detection.ThreatKind(kind)
		ev.Severity = detection.Severity(severity)
		if metadata != "" {
			ev.Metadata = json.RawMessage(metadata)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threat events: %w", err)
	}
	return out, nil
}

// ignoreNoRows keeps "not found" out of the error metrics.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
