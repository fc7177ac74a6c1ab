// Package schedtest provides a manually driven tick counter for testing code
// that runs on the sched kernel.
package schedtest

import (
	"sync"

	"libdb.so/ledring/internal/sched"
)

// ManualClock is a tick counter that only moves when Advance is called.
type ManualClock struct {
	mu      sync.Mutex
	now     sched.Instant
	waiters map[*waiter]struct{}
}

type waiter struct {
	due sched.Instant
	ch  chan struct{}
}

var _ sched.Clock = (*ManualClock)(nil)

// NewManualClock creates a clock reading start.
func NewManualClock(start sched.Instant) *ManualClock {
	return &ManualClock{
		now:     start,
		waiters: make(map[*waiter]struct{}),
	}
}

// Now implements sched.Clock.
func (c *ManualClock) Now() sched.Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After implements sched.Clock.
func (c *ManualClock) After(due sched.Instant) (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &waiter{due: due, ch: make(chan struct{})}
	if due <= c.now {
		close(w.ch)
		return w.ch, func() {}
	}

	c.waiters[w] = struct{}{}
	return w.ch, func() {
		c.mu.Lock()
		delete(c.waiters, w)
		c.mu.Unlock()
	}
}

// Advance moves the clock forward and fires every wait that fell due.
func (c *ManualClock) Advance(d sched.Ticks) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	for w := range c.waiters {
		if w.due <= c.now {
			close(w.ch)
			delete(c.waiters, w)
		}
	}
}

// Waiters returns the number of pending waits.
func (c *ManualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
