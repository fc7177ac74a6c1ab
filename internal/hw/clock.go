package hw

import (
	"time"

	"libdb.so/ledring/internal/sched"
)

// Counter is a tick counter running at a fixed rate, derived from the
// monotonic clock.
type Counter struct {
	hz    uint64
	start time.Time
}

var _ sched.Clock = (*Counter)(nil)

// NewCounter creates a counter ticking hz times per second, starting at zero.
func NewCounter(hz uint64) *Counter {
	if hz == 0 {
		panic("hw: zero tick rate")
	}
	return &Counter{hz: hz, start: time.Now()}
}

// Now implements sched.Clock.
func (c *Counter) Now() sched.Instant {
	return c.toTicks(time.Since(c.start))
}

// After implements sched.Clock.
func (c *Counter) After(due sched.Instant) (<-chan struct{}, func()) {
	ch := make(chan struct{})

	wait := c.toDuration(due.Sub(c.Now()))
	if wait <= 0 {
		close(ch)
		return ch, func() {}
	}

	t := time.AfterFunc(wait, func() { close(ch) })
	return ch, func() { t.Stop() }
}

// Duration converts a span of ticks to wall time.
func (c *Counter) Duration(d sched.Ticks) time.Duration {
	return c.toDuration(d)
}

func (c *Counter) toTicks(d time.Duration) sched.Instant {
	ns := uint64(d)
	secs := ns / uint64(time.Second)
	rem := ns % uint64(time.Second)
	return sched.Instant(secs*c.hz + rem*c.hz/uint64(time.Second))
}

func (c *Counter) toDuration(d sched.Ticks) time.Duration {
	ticks := uint64(d)
	secs := ticks / c.hz
	rem := ticks % c.hz
	// Round up so that a wait never ends before the counter reaches due.
	ns := (rem*uint64(time.Second) + c.hz - 1) / c.hz
	return time.Duration(secs)*time.Second + time.Duration(ns)
}
