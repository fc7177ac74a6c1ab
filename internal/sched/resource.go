package sched

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// Context is a running task invocation. It is passed to the task body and is
// only valid until the body returns.
type Context struct {
	k         *Kernel
	task      *taskState
	scheduled Instant
	// ceilings is the stack of effective priorities raised by nested locks.
	ceilings []Priority
}

// Task returns the ID of the running task.
func (cx *Context) Task() TaskID { return cx.task.id }

// Name returns the name of the running task.
func (cx *Context) Name() string { return cx.task.Name }

// Priority returns the base priority of the running task.
func (cx *Context) Priority() Priority { return cx.task.Priority }

// Scheduled returns the instant this invocation was due. Periodic tasks add
// their period to it so that the period does not drift with dispatch latency.
func (cx *Context) Scheduled() Instant { return cx.scheduled }

// Now returns the current tick count.
func (cx *Context) Now() Instant { return cx.k.clock.Now() }

// Schedule arms a task to run at the given instant.
func (cx *Context) Schedule(id TaskID, at Instant) error {
	return cx.k.Schedule(id, at)
}

// Spawn arms a task to run as soon as possible.
func (cx *Context) Spawn(id TaskID) error {
	return cx.k.Spawn(id)
}

// effective must be called with the kernel lock held.
func (cx *Context) effective() Priority {
	if n := len(cx.ceilings); n > 0 {
		return cx.ceilings[n-1]
	}
	return cx.task.Priority
}

func (cx *Context) call() (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Errorf("panic: %v\n%s", v, debug.Stack())
		}
	}()
	return cx.task.Run(cx)
}

// preemptedLocked reports whether another invocation is running at a higher
// effective priority.
func (cx *Context) preemptedLocked() bool {
	e := cx.effective()
	for _, other := range cx.k.active {
		if other != cx && other.effective() > e {
			return true
		}
	}
	return false
}

// Resource is a value shared between tasks of different priorities. Its
// ceiling is the highest priority of the tasks declared as its users.
type Resource[T any] struct {
	k       *Kernel
	name    string
	value   T
	ceiling Priority
	users   map[TaskID]bool
}

// NewResource creates a resource holding v, used by the given tasks. The tasks
// must already be registered with k.
func NewResource[T any](k *Kernel, name string, v T, users ...TaskID) *Resource[T] {
	r := &Resource[T]{
		k:     k,
		name:  name,
		value: v,
		users: make(map[TaskID]bool, len(users)),
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, id := range users {
		t := k.task(id)
		r.users[id] = true
		if t.Priority > r.ceiling {
			r.ceiling = t.Priority
		}
	}

	return r
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.name }

// Ceiling returns the resource ceiling.
func (r *Resource[T]) Ceiling() Priority { return r.ceiling }

// Lock runs f with exclusive access to the resource. The caller's effective
// priority is raised to the ceiling while f runs, so no other user of the
// resource can start. f must not retain the value.
//
// Lock panics if the running task is not a declared user.
func (r *Resource[T]) Lock(cx *Context, f func(T)) {
	if !r.users[cx.task.id] {
		panic(fmt.Sprintf("sched: task %s does not use resource %s", cx.task.Name, r.name))
	}

	k := r.k
	k.mu.Lock()
	for cx.preemptedLocked() {
		k.cond.Wait()
	}
	e := cx.effective()
	if r.ceiling > e {
		e = r.ceiling
	}
	cx.ceilings = append(cx.ceilings, e)
	k.mu.Unlock()

	defer func() {
		k.mu.Lock()
		cx.ceilings = cx.ceilings[:len(cx.ceilings)-1]
		k.cond.Broadcast()
		k.dispatchLocked()
		k.mu.Unlock()
	}()

	f(r.value)
}
