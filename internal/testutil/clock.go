package testutil

import (
	"sync"
	"time"
)

// Clock a settable wall clock for tests. Safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now the current fake time; pass c.Now wherever a func() time.Time is taken
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
