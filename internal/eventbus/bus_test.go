// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package eventbus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/corvid-labs/sentinel/internal/detection"
)

func event(id string) detection.ThreatEvent {
	return detection.ThreatEvent{
		ID:        id,
		Kind:      detection.ThreatRateAnomaly,
		Severity:  detection.SeverityCritical,
		Identity:  "user-1",
		Timestamp: time.Now(),
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := New(8)
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(event("e1"))

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		select {
		case got := <-sub.Events():
			if got.ID != "e1" {
				t.Errorf("%s: expected event e1, got %s", name, got.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: expected buffered event", name)
		}
	}
}

func TestUnsubscribedReceivesNothing(t *testing.T) {
	bus := New(8)
	sub := bus.Subscribe()

	bus.Publish(event("before"))
	bus.Unsubscribe(sub)
	bus.Publish(event("after"))

	var got []string
	for e := range sub.Events() {
		got = append(got, e.ID)
	}

	// The pre-unsubscribe event may be buffered, but nothing published
	// after Unsubscribe returned may appear.
	for _, id := range got {
		if id == "after" {
			t.Error("received event published after Unsubscribe returned")
		}
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	bus := New(8)
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
}

func TestFullSubscriberEvicted(t *testing.T) {
	bus := New(2)
	stalled := bus.Subscribe()
	healthy := bus.Subscribe()

	// Fill the stalled subscriber's buffer while the healthy one drains.
	bus.Publish(event("e1"))
	bus.Publish(event("e2"))
	<-healthy.Events()
	<-healthy.Events()

	bus.Publish(event("e3"))

	if bus.SubscriberCount() != 1 {
		t.Errorf("expected stalled subscriber evicted, count %d", bus.SubscriberCount())
	}

	// The evicted channel is closed after its buffered events.
	var got []string
	for e := range stalled.Events() {
		got = append(got, e.ID)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 buffered events before close, got %v", got)
	}

	// The healthy subscriber keeps receiving.
	bus.Publish(event("e4"))
	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-healthy.Events():
			count++
		case <-time.After(100 * time.Millisecond):
		}
	}
	if count != 2 {
		t.Errorf("expected healthy subscriber to receive e3 and e4, got %d", count)
	}
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	bus := New(8)
	bus.Publish(event("early"))

	late := bus.Subscribe()
	bus.Publish(event("late"))

	select {
	case got := <-late.Events():
		if got.ID != "late" {
			t.Errorf("late subscriber must not see replayed events, got %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the late event")
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	bus := New(8)
	bus.Publish(event("e1")) // must not panic or block
}

func TestConcurrentPublishSubscribeUnsubscribe(t *testing.T) {
	bus := New(16)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				bus.Publish(event(fmt.Sprintf("p%d-%d", n, i)))
			}
		}(g)
	}

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub := bus.Subscribe()
				// Drain a little, then leave.
				select {
				case <-sub.Events():
				default:
				}
				bus.Unsubscribe(sub)
			}
		}()
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		sub := bus.Subscribe()
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-stop:
				return
			case <-sub.Events():
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock in concurrent bus usage")
	}
	close(stop)
	<-drained
}

func TestClose(t *testing.T) {
	bus := New(8)
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after Close, got %d", bus.SubscriberCount())
	}
	for _, sub := range []*Subscription{a, b} {
		if _, open := <-sub.Events(); open {
			t.Error("expected channel closed after Close")
		}
	}
}
