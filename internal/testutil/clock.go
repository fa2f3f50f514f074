package testutil

import (
	"sync"
	"time"
)

// StubClock returns a settable fixed time, so snapshot identifiers and
// ledger call dates are deterministic. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock pinned to the given instant.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, simulating time passing between
// scheduling ticks.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
