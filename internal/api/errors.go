// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package api

// Machine-readable error codes carried in APIError.Code.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
)
