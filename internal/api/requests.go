// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies; extractions carry document text
// but nothing close to a megabyte.
const maxBodyBytes = 1 << 20

// CheckLoginRequest is the body for POST /api/v1/logins/check.
// A (0,0) coordinate pair means geolocation was unavailable.
type CheckLoginRequest struct {
	Identity   string    `json:"identity" validate:"required"`
	SourceAddr string    `json:"source_addr"`
	Latitude   float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalyzeBillRequest is the body for POST /api/v1/bills/analyze.
// Fields the extractor could not fill are omitted and degrade to zero
// values in the heuristics.
type AnalyzeBillRequest struct {
	VendorName      string  `json:"vendor_name"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	ContactEmail    string  `json:"contact_email" validate:"omitempty,email"`
	BankFingerprint string  `json:"bank_fingerprint"`
	Text            string  `json:"text"`
}

// CreateVendorRequest is the body for POST /api/v1/vendors.
type CreateVendorRequest struct {
	Name            string `json:"name" validate:"required"`
	BankFingerprint string `json:"bank_fingerprint" validate:"required"`
}

// LockdownRequest is the body for POST /api/v1/lockdown. Enabled is a
// pointer so a missing field is rejected rather than read as false.
type LockdownRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// decodeAndValidate decodes the JSON body into dst and validates it.
// The error message is safe to return to the client.
func decodeAndValidate(r *http.Request, validate *validator.Validate, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
