// Package ratelimit provides the per-key limiters used by the HTTP layer.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultMaxKeys    = 10000
	DefaultSweepEvery = 256

	// UnknownKey stands in for an empty key.
	UnknownKey = "unknown"
)

// Window is a sliding-window limiter: per key it keeps the event times of
// the trailing window and admits an event iff fewer than limit remain.
// The key space is bounded by an LRU over keys. All methods are safe for
// concurrent use.
type Window struct {
	limit      int
	window     time.Duration
	sweepEvery int

	mu    sync.Mutex
	keys  *simplelru.LRU[string, []time.Time]
	calls int
}

// WindowOption configures a Window.
type WindowOption func(*windowConfig)

type windowConfig struct {
	maxKeys    int
	sweepEvery int
}

// WithMaxKeys bounds the number of tracked keys.
func WithMaxKeys(n int) WindowOption {
	return func(c *windowConfig) {
		if n > 0 {
			c.maxKeys = n
		}
	}
}

// WithSweepEvery sets how many calls pass between sweeps of expired keys.
func WithSweepEvery(n int) WindowOption {
	return func(c *windowConfig) {
		if n > 0 {
			c.sweepEvery = n
		}
	}
}

// NewWindow creates a limiter admitting limit events per key within window.
func NewWindow(limit int, window time.Duration, opts ...WindowOption) *Window {
	cfg := windowConfig{maxKeys: DefaultMaxKeys, sweepEvery: DefaultSweepEvery}
	for _, opt := range opts {
		opt(&cfg)
	}
	// NewLRU only fails for a non-positive size, which the options exclude.
	keys, _ := simplelru.NewLRU[string, []time.Time](cfg.maxKeys, nil)

	return &Window{
		limit:      max(1, limit),
		window:     window,
		sweepEvery: cfg.sweepEvery,
		keys:       keys,
	}
}

// Allow reports whether an event for key at now is admitted, recording it
// if so. Touching a key makes it the most recently used.
func (w *Window) Allow(key string, now time.Time) bool {
	if key == "" {
		key = UnknownKey
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.calls++
	if w.calls%w.sweepEvery == 0 {
		w.sweep(now)
	}

	events, _ := w.keys.Get(key)
	events = w.prune(events, now)
	allowed := len(events) < w.limit
	if allowed {
		events = append(events, now)
	}
	w.keys.Add(key, events)
	return allowed
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.keys.Len()
}

// prune drops events at or before now-window. events is ordered.
func (w *Window) prune(events []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return events
	}
	return append(events[:0], events[i:]...)
}

// sweep removes keys whose newest event has expired. Peek keeps the
// recency order intact.
func (w *Window) sweep(now time.Time) {
	cutoff := now.Add(-w.window)
	for _, key := range w.keys.Keys() {
		events, ok := w.keys.Peek(key)
		if !ok {
			continue
		}
		if len(events) == 0 || !events[len(events)-1].After(cutoff) {
			w.keys.Remove(key)
		}
	}
}
