package testutil

import (
	"sync"
	"time"
)

// Clock is a controllable wall clock for deterministic rendering. Passing
// Now to render.WithNow pins every date expression in a mounted document
// to the instant the test set instead of the process clock.
type Clock struct {
	mu sync.Mutex
	at time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(at time.Time) *Clock {
	return &Clock{at: at}
}

// Now returns the current instant. Safe for concurrent use; an effect may
// read the clock while the test advances it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// Advance moves the clock by d, which may be negative.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

// Set repoints the clock at an absolute instant.
func (c *Clock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = at
}
