// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/corvid-labs/sentinel/internal/accessgate"
	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/eventbus"
	"github.com/corvid-labs/sentinel/internal/logging"
)

// Store is the persistence surface the handlers need. *database.DB
// satisfies it.
type Store interface {
	detection.VendorLedger
	detection.LoginHistoryStore

	CreateVendor(ctx context.Context, name, bankFingerprint string) (*detection.VendorRecord, error)
	ListVendors(ctx context.Context) ([]detection.VendorRecord, error)
	RecordBill(ctx context.Context, vendorID string, amount float64) error
	RecentThreatEvents(ctx context.Context, limit int) ([]detection.ThreatEvent, error)
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	engine   *detection.Engine
	store    Store
	gate     *accessgate.Gate
	bus      *eventbus.Bus
	validate *validator.Validate
	started  time.Time
}

// NewHandler creates the handler set.
func NewHandler(engine *detection.Engine, store Store, gate *accessgate.Gate, bus *eventbus.Bus) *Handler {
	return &Handler{
		engine:   engine,
		store:    store,
		gate:     gate,
		bus:      bus,
		validate: validator.New(),
		started:  time.Now(),
	}
}

// healthResponse is the payload for GET /api/v1/health.
type healthResponse struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	Lockdown      bool    `json:"lockdown"`
	Subscribers   int     `json:"subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports liveness, database reachability, and lockdown state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	resp := healthResponse{
		Status:        "ok",
		Database:      "ok",
		Lockdown:      h.gate.IsLocked(),
		Subscribers:   h.bus.SubscriberCount(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	if err := h.store.Ping(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}

	rw.Success(resp)
}

// lockdownResponse is the payload for POST /api/v1/lockdown.
type lockdownResponse struct {
	Lockdown bool `json:"lockdown"`

	// StoreSynced reports whether the store accepted the read-only
	// toggle. The gate itself always reflects the requested state.
	StoreSynced bool `json:"store_synced"`
}

// Lockdown toggles the global access gate. This route is never gated
// itself so an operator can always lift a lockdown.
func (h *Handler) Lockdown(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LockdownRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	err := h.gate.SetLockdown(r.Context(), *req.Enabled)
	if err != nil {
		logging.Error().Err(err).Bool("enabled", *req.Enabled).
			Msg("lockdown toggled but store propagation failed")
	}

	rw.Success(lockdownResponse{
		Lockdown:    h.gate.IsLocked(),
		StoreSynced: err == nil,
	})
}

// CheckLogin evaluates a login against the identity's previous one and
// records it as the new baseline.
func (h *Handler) CheckLogin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CheckLoginRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	event := detection.LoginEvent{
		Identity:   req.Identity,
		SourceAddr: req.SourceAddr,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Timestamp:  req.Timestamp,
	}

	verdict := h.engine.ProcessLogin(r.Context(), event)

	// The current login becomes the baseline for the next evaluation,
	// impossible or not.
	if err := h.store.RecordLogin(r.Context(), event); err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(verdict)
}

// AnalyzeBill scores a financial-document extraction. Clean documents
// from known vendors are recorded into billing history so the velocity
// baseline stays current.
func (h *Handler) AnalyzeBill(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req AnalyzeBillRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	extraction := detection.Extraction{
		VendorName:      req.VendorName,
		Amount:          req.Amount,
		ContactEmail:    req.ContactEmail,
		BankFingerprint: req.BankFingerprint,
		Text:            req.Text,
	}

	verdict := h.engine.ProcessExtraction(r.Context(), extraction)

	if !verdict.Suspicious && req.Amount > 0 {
		h.recordCleanBill(r, extraction)
	}

	rw.Success(verdict)
}

// recordCleanBill appends a non-suspicious bill from a known vendor to
// its billing history. Failures are logged, never surfaced: the verdict
// already stands.
func (h *Handler) recordCleanBill(r *http.Request, extraction detection.Extraction) {
	vendor, err := h.store.FindByName(r.Context(), extraction.VendorName)
	if err != nil || vendor == nil {
		return
	}
	if err := h.store.RecordBill(r.Context(), vendor.ID, extraction.Amount); err != nil {
		logging.Warn().Err(err).Str("vendor", vendor.Name).
			Msg("failed to record clean bill")
	}
}

// CreateVendor registers a vendor with its bank fingerprint.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateVendorRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	existing, err := h.store.FindByName(r.Context(), req.Name)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if existing != nil {
		rw.Conflict("vendor already exists: " + existing.Name)
		return
	}

	vendor, err := h.store.CreateVendor(r.Context(), req.Name, req.BankFingerprint)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Created(vendor)
}

// ListVendors returns all known vendors.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	vendors, err := h.store.ListVendors(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(vendors)
}

const (
	defaultThreatLimit = 50
	maxThreatLimit     = 500
)

// RecentThreats returns the most recently persisted threat events.
func (h *Handler) RecentThreats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := defaultThreatLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			rw.BadRequest("limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxThreatLimit {
		limit = maxThreatLimit
	}

	events, err := h.store.RecentThreatEvents(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(events)
}
