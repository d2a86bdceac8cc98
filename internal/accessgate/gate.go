// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package accessgate implements the global lockdown switch. While the
// gate is locked every mutating route refuses with a read-only
// response. The in-process flag is authoritative; the store's own
// read-only switch is kept in sync as defense in depth.
package accessgate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// ReadOnlySetter is the store-side write protection the gate propagates to.
type ReadOnlySetter interface {
	SetReadOnly(ctx context.Context, readOnly bool) error
}

// Gate is the global lockdown flag.
type Gate struct {
	locked atomic.Bool
	store  ReadOnlySetter
}

// New creates a gate propagating to the given store. A nil store means
// no propagation.
func New(store ReadOnlySetter) *Gate {
	return &Gate{store: store}
}

// SetLockdown flips the gate and propagates the new state to the store.
// The flag is set before propagation, so the gate enforces even when the
// store cannot be reached; a propagation failure is logged and returned
// so callers can surface the partial sync.
func (g *Gate) SetLockdown(ctx context.Context, enabled bool) error {
	g.locked.Store(enabled)
	metrics.SetLockdown(enabled)

	logging.Info().Bool("enabled", enabled).Msg("lockdown toggled")

	if g.store == nil {
		return nil
	}
	if err := g.store.SetReadOnly(ctx, enabled); err != nil {
		logging.Error().Err(err).Bool("enabled", enabled).
			Msg("failed to propagate lockdown to store")
		return fmt.Errorf("propagate lockdown: %w", err)
	}
	return nil
}

// IsLocked reports whether the lockdown is active.
func (g *Gate) IsLocked() bool {
	return g.locked.Load()
}
