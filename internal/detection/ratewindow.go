// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package detection

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"
)

// rateShardCount is the number of registry shards. Sharding keeps
// unrelated identities off the same registry lock.
const rateShardCount = 32

// RateWindowConfig configures the per-identity sliding request window.
type RateWindowConfig struct {
	// Window is the sliding window width.
	Window time.Duration

	// Threshold is the request count that maps to a score of 50.
	Threshold int

	// MaxIdentities bounds the number of tracked identities; the least
	// recently seen identity is evicted when the bound is exceeded.
	MaxIdentities int
}

// DefaultRateWindowConfig returns the default window parameters.
func DefaultRateWindowConfig() RateWindowConfig {
	return RateWindowConfig{
		Window:        time.Second,
		Threshold:     20,
		MaxIdentities: 100000,
	}
}

// identityWindow holds the ordered in-window timestamps for one identity.
// Its mutex serializes concurrent calls for the same identity without
// blocking other identities.
type identityWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// rateShard is one slice of the identity registry with its own LRU order.
type rateShard struct {
	mu      sync.Mutex
	windows map[string]*list.Element // identity -> lruEntry element
	lru     *list.List               // front = most recently seen
}

type lruEntry struct {
	identity string
	window   *identityWindow
}

// RateWindowTracker tracks request timestamps per identity over a
// sliding window and scores the in-window count against a threshold.
type RateWindowTracker struct {
	cfg         RateWindowConfig
	maxPerShard int
	shards      [rateShardCount]*rateShard
}

// NewRateWindowTracker creates a tracker. Zero or negative config values
// fall back to defaults.
func NewRateWindowTracker(cfg RateWindowConfig) *RateWindowTracker {
	def := DefaultRateWindowConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MaxIdentities < 1 {
		cfg.MaxIdentities = def.MaxIdentities
	}

	t := &RateWindowTracker{
		cfg:         cfg,
		maxPerShard: (cfg.MaxIdentities + rateShardCount - 1) / rateShardCount,
	}
	for i := range t.shards {
		t.shards[i] = &rateShard{
			windows: make(map[string]*list.Element),
			lru:     list.New(),
		}
	}
	return t
}

// RecordAndScore appends now to the identity's window, prunes entries
// that have fallen out of the window, and returns the score
// count/threshold*50. The score is unbounded above; callers flag
// anomalies when it exceeds 50.
func (t *RateWindowTracker) RecordAndScore(identity string, now time.Time) float64 {
	w := t.window(identity)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.timestamps = append(w.timestamps, now)

	// Prune in place: the slice is ordered, so find the first timestamp
	// still inside the window.
	cutoff := now.Add(-t.cfg.Window)
	keep := 0
	for keep < len(w.timestamps) && !w.timestamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[keep:]...)
	}

	return float64(len(w.timestamps)) / float64(t.cfg.Threshold) * 50.0
}

// Count returns the current in-window count for an identity without
// recording a new sample.
func (t *RateWindowTracker) Count(identity string, now time.Time) int {
	s := t.shard(identity)

	s.mu.Lock()
	elem, ok := s.windows[identity]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	w := elem.Value.(*lruEntry).window
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-t.cfg.Window)
	n := 0
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// TrackedIdentities returns the number of identities currently held.
func (t *RateWindowTracker) TrackedIdentities() int {
	total := 0
	for _, s := range t.shards {
		s.mu.Lock()
		total += len(s.windows)
		s.mu.Unlock()
	}
	return total
}

// window returns the identity's window, creating it and evicting the
// least recently seen identity in the shard if the shard is full.
func (t *RateWindowTracker) window(identity string) *identityWindow {
	s := t.shard(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.windows[identity]; ok {
		s.lru.MoveToFront(elem)
		return elem.Value.(*lruEntry).window
	}

	if len(s.windows) >= t.maxPerShard {
		oldest := s.lru.Back()
		if oldest != nil {
			s.lru.Remove(oldest)
			delete(s.windows, oldest.Value.(*lruEntry).identity)
		}
	}

	w := &identityWindow{}
	s.windows[identity] = s.lru.PushFront(&lruEntry{identity: identity, window: w})
	return w
}

func (t *RateWindowTracker) shard(identity string) *rateShard {
	h := fnv.New32a()
	h.Write([]byte(identity)) //nolint:errcheck // fnv never errors
	return t.shards[h.Sum32()%rateShardCount]
}
