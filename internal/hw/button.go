package hw

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// EdgeLine latches rising edges into a pending flag, like an external
// interrupt line. An edge that arrives while the flag is set is merged into
// it. The handler clears the flag once it has serviced the edge.
type EdgeLine struct {
	pending atomic.Bool
}

// Trigger records an edge. It calls raise only if no edge was pending.
func (l *EdgeLine) Trigger(raise func()) {
	if l.pending.CompareAndSwap(false, true) {
		raise()
	}
}

// Pending reports whether an edge is waiting to be serviced.
func (l *EdgeLine) Pending() bool {
	return l.pending.Load()
}

// ClearPending clears the pending flag.
func (l *EdgeLine) ClearPending() {
	l.pending.Store(false)
}

// edgePoll bounds WaitForEdge so that Watch notices cancellation.
const edgePoll = 100 * time.Millisecond

// Button is a push button on a periph.io GPIO input with rising edge
// detection.
type Button struct {
	EdgeLine
	pin gpio.PinIn
}

// OpenButton configures the named pin as a floating input that reports rising
// edges.
func OpenButton(name string) (*Button, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such GPIO pin %q", name)
	}
	if err := p.In(gpio.Float, gpio.RisingEdge); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s as input", name)
	}
	return &Button{pin: p}, nil
}

// Watch calls pressed for every rising edge until ctx is canceled. Edges are
// merged while one is pending.
func (b *Button) Watch(ctx context.Context, pressed func()) error {
	defer b.pin.Halt()

	for ctx.Err() == nil {
		if b.pin.WaitForEdge(edgePoll) {
			b.Trigger(pressed)
		}
	}

	return ctx.Err()
}
