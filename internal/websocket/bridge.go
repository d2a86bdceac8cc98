// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package websocket

import (
	"context"
	"errors"

	"github.com/corvid-labs/sentinel/internal/eventbus"
	"github.com/corvid-labs/sentinel/internal/logging"
)

// ErrEvicted is returned when the bus removed the bridge's
// subscription; the supervisor restarts the service with a fresh one.
var ErrEvicted = errors.New("websocket bridge subscription evicted")

// Bridge drains the event bus into the hub's broadcast queue. It
// satisfies suture.Service.
type Bridge struct {
	bus *eventbus.Bus
	hub *Hub
}

// NewBridge creates a bridge between the bus and the hub.
func NewBridge(bus *eventbus.Bus, hub *Hub) *Bridge {
	return &Bridge{bus: bus, hub: hub}
}

// Serve subscribes to the bus and forwards every threat event to the
// hub until the context is canceled.
func (b *Bridge) Serve(ctx context.Context) error {
	sub := b.bus.Subscribe()
	defer b.bus.Unsubscribe(sub)

	logging.Info().Msg("websocket bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.Events():
			if !ok {
				return ErrEvicted
			}
			b.hub.BroadcastThreat(event)
		}
	}
}
