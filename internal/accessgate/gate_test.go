// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package accessgate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockStore records SetReadOnly calls.
type mockStore struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (m *mockStore) SetReadOnly(_ context.Context, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, readOnly)
	return m.err
}

func TestGateStartsUnlocked(t *testing.T) {
	gate := New(&mockStore{})
	if gate.IsLocked() {
		t.Error("expected new gate to be unlocked")
	}
}

func TestSetLockdownTogglesAndPropagates(t *testing.T) {
	store := &mockStore{}
	gate := New(store)

	if err := gate.SetLockdown(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gate.IsLocked() {
		t.Error("expected gate locked")
	}

	if err := gate.SetLockdown(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.IsLocked() {
		t.Error("expected gate unlocked")
	}

	if len(store.calls) != 2 || store.calls[0] != true || store.calls[1] != false {
		t.Errorf("expected propagation calls [true false], got %v", store.calls)
	}
}

func TestSetLockdownEnforcesDespitePropagationFailure(t *testing.T) {
	store := &mockStore{err: errors.New("store offline")}
	gate := New(store)

	err := gate.SetLockdown(context.Background(), true)
	if err == nil {
		t.Fatal("expected propagation error to be returned")
	}
	if !gate.IsLocked() {
		t.Error("gate must enforce even when propagation fails")
	}
}

func TestSetLockdownNilStore(t *testing.T) {
	gate := New(nil)
	if err := gate.SetLockdown(context.Background(), true); err != nil {
		t.Fatalf("unexpected error with nil store: %v", err)
	}
	if !gate.IsLocked() {
		t.Error("expected gate locked")
	}
}

func TestGateConcurrentToggles(t *testing.T) {
	gate := New(&mockStore{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				gate.SetLockdown(context.Background(), (n+i)%2 == 0) //nolint:errcheck
				gate.IsLocked()
			}
		}(g)
	}
	wg.Wait()
}
