package testutil

import (
	"sync"
	"time"

	"albumd/internal/album"
)

// Epoch is where every FixedClock starts.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an album.Clock that only moves when a test advances it.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ album.Clock = (*StubClock)(nil)

// FixedClock returns a StubClock set to Epoch.
func FixedClock() *StubClock {
	return &StubClock{now: Epoch}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, e.g. past a rate-limit window or
// into the next archive timestamp.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stamp renders the current time the way stats files record visits.
func (c *StubClock) Stamp() string {
	return c.Now().UTC().Format(time.RFC3339)
}
