// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package websocket streams published threat events to browser clients.
//
// The hub owns the client registry and serializes register, unregister,
// and broadcast on a single goroutine. Clients that cannot keep up with
// the broadcast rate are disconnected rather than allowed to backpressure
// the hub.
package websocket

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type      string                `json:"type"`
	Event     detection.ThreatEvent `json:"event"`
	Timestamp time.Time             `json:"timestamp"`
}

// MessageTypeThreat is the envelope type for threat event messages.
const MessageTypeThreat = "threat_event"

// Hub maintains the set of active clients and broadcasts threat events
// to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// count mirrors len(clients) for readers outside the hub goroutine.
	count atomic.Int64
}

// NewHub creates a hub. Call RunWithContext before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub loop until the context is canceled, then
// disconnects all clients. Register and unregister are serviced with
// priority over broadcasts so a flood of events cannot starve
// connection management.
func (h *Hub) RunWithContext(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		default:
			select {
			case <-ctx.Done():
				h.closeAllClients()
				return
			case client := <-h.register:
				h.clients[client] = true
				metrics.WebsocketClients.Set(float64(len(h.clients)))
				logging.Debug().Uint64("client_id", client.id).
					Int("clients", len(h.clients)).
					Msg("websocket client registered")
			case client := <-h.unregister:
				h.removeClient(client)
			case message := <-h.broadcast:
				h.broadcastToClients(message)
			}
		}
	}
}

// BroadcastThreat queues a threat event for delivery to all clients.
// It never blocks; when the hub's queue is full the event is dropped
// for websocket consumers (the bus and store still have it).
func (h *Hub) BroadcastThreat(event detection.ThreatEvent) {
	msg := Message{
		Type:      MessageTypeThreat,
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("event_id", event.ID).
			Msg("websocket broadcast queue full, dropping event")
	}
}

func (h *Hub) addClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	logging.Debug().Uint64("client_id", client.id).
		Int("clients", len(h.clients)).
		Msg("websocket client registered")
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.count.Store(int64(len(h.clients)))
		metrics.WebsocketClients.Set(float64(len(h.clients)))
		logging.Debug().Uint64("client_id", client.id).
			Int("clients", len(h.clients)).
			Msg("websocket client unregistered")
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// broadcastToClients writes the message to every client in a stable
// order and drops clients whose send buffers are full.
func (h *Hub) broadcastToClients(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		logging.Warn().Uint64("client_id", client.id).
			Msg("disconnecting slow websocket client")
		h.removeClient(client)
	}
}

func (h *Hub) closeAllClients() {
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.count.Store(0)
	metrics.WebsocketClients.Set(0)
	logging.Info().Msg("websocket hub stopped, all clients disconnected")
}
