// Package sched is a fixed-priority, run-to-completion task kernel with
// priority-ceiling resource sharing.
//
// Tasks are registered once before the kernel runs. A task becomes ready when
// an interrupt source pends it, or when a scheduling request for it falls due.
// A ready task is dispatched only if its priority is greater than the system
// priority, which is the highest effective priority of any running task.
// Locking a resource raises the locker's effective priority to the resource
// ceiling for the duration of the critical section.
//
// Every invocation runs on its own goroutine. A running task that has been
// overtaken by a higher-priority one is held at its next Lock until the higher
// one has finished, which is how preemption is observed on a hosted runtime.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Priority is a task priority. Higher values preempt lower ones. Zero is the
// idle level and cannot be used by tasks.
type Priority uint8

// TaskID identifies a registered task.
type TaskID int

// TaskFunc is the body of a task. A non-nil error is fatal and halts the
// kernel.
type TaskFunc func(cx *Context) error

// Task describes a task.
type Task struct {
	Name     string
	Priority Priority
	Run      TaskFunc
}

var (
	// ErrAlreadyArmed is returned when a task that already has an
	// outstanding request is scheduled again.
	ErrAlreadyArmed = errors.New("task already armed")
	// ErrHalted is returned by Run when the kernel was stopped by a failed
	// task. The task error is wrapped.
	ErrHalted = errors.New("kernel halted")
)

type taskState struct {
	Task
	id TaskID

	// armed is set while a request is outstanding, either in the timer queue
	// or ready for dispatch.
	armed bool
	ready bool
	// seq orders ready tasks of equal priority.
	seq uint64
	// baseline is the instant the ready request was due.
	baseline Instant
}

// Kernel runs a fixed set of tasks.
type Kernel struct {
	clock  Clock
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []*taskState
	active  []*Context
	timers  timerQueue
	seq     uint64
	running bool
	err     error

	wake   chan struct{}
	halted chan struct{}
	wg     sync.WaitGroup
}

// NewKernel creates a kernel using the given tick counter. A nil logger uses
// slog.Default.
func NewKernel(clock Clock, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}

	k := &Kernel{
		clock:  clock,
		logger: logger,
		wake:   make(chan struct{}, 1),
		halted: make(chan struct{}),
	}
	k.cond = sync.NewCond(&k.mu)
	return k
}

// Add registers a task and returns its ID. It panics if the priority is zero.
func (k *Kernel) Add(t Task) TaskID {
	if t.Priority == 0 {
		panic(fmt.Sprintf("sched: task %q has idle priority", t.Name))
	}
	if t.Run == nil {
		panic(fmt.Sprintf("sched: task %q has no body", t.Name))
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	id := TaskID(len(k.tasks))
	k.tasks = append(k.tasks, &taskState{Task: t, id: id})
	return id
}

// Now returns the current tick count.
func (k *Kernel) Now() Instant {
	return k.clock.Now()
}

// Pend marks an interrupt-driven task as ready. Pending an already pending
// task has no further effect, like a hardware pending bit. It is safe to call
// from any goroutine.
func (k *Kernel) Pend(id TaskID) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.task(id)
	if t.ready {
		return
	}
	t.armed = true
	k.readyLocked(t, k.clock.Now())
	k.dispatchLocked()
}

// Spawn arms a task to run as soon as possible. It returns ErrAlreadyArmed if
// the task already has an outstanding request.
func (k *Kernel) Spawn(id TaskID) error {
	return k.schedule(id, k.clock.Now())
}

// Schedule arms a task to run once the tick counter reaches at. It returns
// ErrAlreadyArmed if the task already has an outstanding request.
func (k *Kernel) Schedule(id TaskID, at Instant) error {
	return k.schedule(id, at)
}

func (k *Kernel) schedule(id TaskID, at Instant) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.task(id)
	if t.armed {
		return errors.Wrapf(ErrAlreadyArmed, "task %s", t.Name)
	}
	t.armed = true

	if at <= k.clock.Now() {
		k.readyLocked(t, at)
		k.dispatchLocked()
		return nil
	}

	k.timers.push(timerRequest{task: id, due: at})
	select {
	case k.wake <- struct{}{}:
	default:
	}
	return nil
}

// Armed reports whether the task has an outstanding request.
func (k *Kernel) Armed(id TaskID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.task(id).armed
}

// Err returns the error that halted the kernel, if any.
func (k *Kernel) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.err
}

// Run dispatches tasks until ctx is canceled or a task fails. Requests made
// before Run are dispatched once it starts. Run waits for running tasks to
// finish before returning.
func (k *Kernel) Run(ctx context.Context) error {
	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return errors.New("kernel already running")
	}
	k.running = true
	k.dispatchLocked()
	k.mu.Unlock()

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return k.timerLoop(ctx)
	})
	errg.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.halted:
			return k.Err()
		}
	})

	err := errg.Wait()

	k.mu.Lock()
	k.running = false
	k.cond.Broadcast()
	k.mu.Unlock()

	k.wg.Wait()
	return err
}

func (k *Kernel) timerLoop(ctx context.Context) error {
	for {
		k.mu.Lock()
		now := k.clock.Now()
		for len(k.timers) > 0 && k.timers[0].due <= now {
			req := k.timers.pop()
			k.readyLocked(k.tasks[req.task], req.due)
		}
		k.dispatchLocked()

		var fire <-chan struct{}
		stop := func() {}
		if len(k.timers) > 0 {
			fire, stop = k.clock.After(k.timers[0].due)
		}
		k.mu.Unlock()

		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case <-k.halted:
			stop()
			return k.Err()
		case <-k.wake:
		case <-fire:
		}
		stop()
	}
}

func (k *Kernel) task(id TaskID) *taskState {
	if id < 0 || int(id) >= len(k.tasks) {
		panic(fmt.Sprintf("sched: unknown task %d", id))
	}
	return k.tasks[id]
}

func (k *Kernel) readyLocked(t *taskState, baseline Instant) {
	k.seq++
	t.ready = true
	t.seq = k.seq
	t.baseline = baseline
}

// systemPriorityLocked returns the highest effective priority of all running
// invocations, or zero when idle.
func (k *Kernel) systemPriorityLocked() Priority {
	var p Priority
	for _, cx := range k.active {
		if e := cx.effective(); e > p {
			p = e
		}
	}
	return p
}

func (k *Kernel) dispatchLocked() {
	if !k.running || k.err != nil {
		return
	}

	for {
		system := k.systemPriorityLocked()

		var next *taskState
		for _, t := range k.tasks {
			if !t.ready || t.Priority <= system {
				continue
			}
			if next == nil || t.Priority > next.Priority ||
				(t.Priority == next.Priority && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			return
		}

		next.ready = false
		next.armed = false

		cx := &Context{
			k:         k,
			task:      next,
			scheduled: next.baseline,
		}
		k.active = append(k.active, cx)

		k.wg.Add(1)
		go k.invoke(cx)
	}
}

func (k *Kernel) invoke(cx *Context) {
	defer k.wg.Done()

	err := cx.call()

	k.mu.Lock()
	defer k.mu.Unlock()

	for i, c := range k.active {
		if c == cx {
			k.active = append(k.active[:i], k.active[i+1:]...)
			break
		}
	}

	if err != nil && k.err == nil {
		k.err = &taskError{task: cx.task.Name, err: err}
		k.logger.Error(
			"task failed, halting",
			"task", cx.task.Name,
			"err", err)
		close(k.halted)
	}

	k.cond.Broadcast()
	k.dispatchLocked()
}

// taskError is the error of a failed task. It matches both ErrHalted and the
// task's own error.
type taskError struct {
	task string
	err  error
}

func (e *taskError) Error() string {
	return fmt.Sprintf("%v: task %s: %v", ErrHalted, e.task, e.err)
}

func (e *taskError) Is(target error) bool { return target == ErrHalted }

func (e *taskError) Unwrap() error { return e.err }
