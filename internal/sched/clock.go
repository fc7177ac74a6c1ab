package sched

import "container/heap"

// Instant is a reading of the monotonic tick counter.
type Instant uint64

// Ticks is a span of the tick counter.
type Ticks uint64

// Add returns the instant d ticks after i.
func (i Instant) Add(d Ticks) Instant {
	return i + Instant(d)
}

// Sub returns the ticks elapsed from j to i, or zero if j is after i.
func (i Instant) Sub(j Instant) Ticks {
	if j > i {
		return 0
	}
	return Ticks(i - j)
}

// Clock is a monotonically increasing tick counter.
type Clock interface {
	// Now returns the current tick count.
	Now() Instant
	// After returns a channel that is closed once the counter reaches due,
	// and a function that releases the wait early.
	After(due Instant) (<-chan struct{}, func())
}

type timerRequest struct {
	task TaskID
	due  Instant
}

// timerQueue is a min-heap of requests ordered by due instant.
type timerQueue []timerRequest

func (q timerQueue) Len() int            { return len(q) }
func (q timerQueue) Less(i, j int) bool  { return q[i].due < q[j].due }
func (q timerQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x interface{}) { *q = append(*q, x.(timerRequest)) }

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

func (q *timerQueue) push(r timerRequest) { heap.Push(q, r) }

func (q *timerQueue) pop() timerRequest { return heap.Pop(q).(timerRequest) }
