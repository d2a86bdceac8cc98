// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

// Package eventbus provides the in-process threat event fan-out.
//
// Delivery is best-effort and at-most-once: a subscriber whose buffer
// is full at publish time is removed during that publish so a stalled
// consumer can never block the publisher or other subscribers. There is
// no replay; a new subscriber sees only events published after it
// subscribed.
package eventbus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/corvid-labs/sentinel/internal/detection"
	"github.com/corvid-labs/sentinel/internal/logging"
	"github.com/corvid-labs/sentinel/internal/metrics"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Subscription is one registered consumer of threat events.
type Subscription struct {
	id string
	ch chan detection.ThreatEvent

	// mu guards closed so a publish racing an unsubscribe never sends
	// on a closed channel.
	mu     sync.Mutex
	closed bool
}

// Events returns the subscriber's receive channel. The channel is
// closed when the subscription is removed, by Unsubscribe or by the
// bus evicting an undrained subscriber.
func (s *Subscription) Events() <-chan detection.ThreatEvent {
	return s.ch
}

// trySend delivers the event without blocking. It reports false when
// the subscription is closed or its buffer is full.
func (s *Subscription) trySend(event detection.ThreatEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus fans published threat events out to all current subscribers.
// Safe for concurrent Publish, Subscribe, and Unsubscribe.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
}

// New creates a bus. A non-positive buffer size uses DefaultBufferSize.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new subscriber and returns its subscription.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan detection.ThreatEvent, b.bufferSize),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	metrics.BusSubscribers.Set(float64(len(b.subs)))
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscription and closes its channel. After it
// returns, no event published afterwards is delivered to it. Safe to
// call more than once and with subscriptions already evicted.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	delete(b.subs, sub.id)
	metrics.BusSubscribers.Set(float64(len(b.subs)))
	b.mu.Unlock()

	sub.close()
}

// Publish delivers the event to every current subscriber. Subscribers
// whose buffers are full are removed and their channels closed; the
// publisher is never blocked.
func (b *Bus) Publish(event detection.ThreatEvent) {
	b.mu.RLock()
	snapshot := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	var evicted []*Subscription
	for _, sub := range snapshot {
		if !sub.trySend(event) {
			evicted = append(evicted, sub)
		}
	}

	if len(evicted) == 0 {
		return
	}

	b.mu.Lock()
	for _, sub := range evicted {
		if _, ok := b.subs[sub.id]; ok {
			delete(b.subs, sub.id)
			metrics.BusDroppedSubscribers.Inc()
			logging.Warn().Str("subscription", sub.id).
				Msg("removing subscriber with undrained buffer")
		}
	}
	metrics.BusSubscribers.Set(float64(len(b.subs)))
	b.mu.Unlock()

	for _, sub := range evicted {
		sub.close()
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes all subscribers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[string]*Subscription)
	metrics.BusSubscribers.Set(0)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
