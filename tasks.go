package ledring

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"libdb.so/ledring/accel"
	"libdb.so/ledring/console"
	"libdb.so/ledring/internal/sched"
	"libdb.so/ledring/ring"
)

// Task priorities. The serial handler preempts everything so that no received
// byte is lost; the button preempts the periodic tasks.
const (
	animationPriority sched.Priority = 1
	sensorPriority    sched.Priority = 1
	buttonPriority    sched.Priority = 2
	serialPriority    sched.Priority = 3
)

// rxFIFOSize is the depth of the console receive FIFO.
const rxFIFOSize = 64

// app is a running instance of the light ring: the kernel, its tasks and the
// resources they share.
type app struct {
	logger *slog.Logger
	kernel *sched.Kernel
	period sched.Ticks

	animation sched.TaskID
	sensor    sched.TaskID
	button    sched.TaskID
	serial    sched.TaskID

	ring *sched.Resource[*ring.Ring]
	tx   *sched.Resource[*console.Transmitter]

	// txLine is the transmitter behind tx. It is only used directly before
	// the kernel runs.
	txLine *console.Transmitter

	// owned by the sensor task
	accel *accel.Sensor
	// owned by the serial task
	interp *console.Interpreter
	// owned by the button task
	btn Button

	console io.Reader
	rx      chan byte
}

func newApp(d *Daemon, hw Hardware, r *ring.Ring, sensor *accel.Sensor) *app {
	a := &app{
		logger:  d.logger,
		kernel:  sched.NewKernel(hw.Clock, d.logger.With("component", "sched")),
		period:  d.cfg.Period(),
		txLine:  console.NewTransmitter(hw.Console),
		accel:   sensor,
		interp:  console.NewInterpreter(),
		btn:     hw.Button,
		console: hw.Console,
		rx:      make(chan byte, rxFIFOSize),
	}

	a.animation = a.kernel.Add(sched.Task{
		Name:     "animation",
		Priority: animationPriority,
		Run:      a.animate,
	})
	a.sensor = a.kernel.Add(sched.Task{
		Name:     "sensor",
		Priority: sensorPriority,
		Run:      a.sample,
	})
	a.button = a.kernel.Add(sched.Task{
		Name:     "button",
		Priority: buttonPriority,
		Run:      a.pressed,
	})
	a.serial = a.kernel.Add(sched.Task{
		Name:     "serial",
		Priority: serialPriority,
		Run:      a.received,
	})

	a.ring = sched.NewResource(a.kernel, "ring", r,
		a.animation, a.sensor, a.button, a.serial)
	a.tx = sched.NewResource(a.kernel, "tx", a.txLine,
		a.sensor, a.button, a.serial)

	d.logger.Debug(
		"registered tasks",
		"ring_ceiling", a.ring.Ceiling(),
		"tx_ceiling", a.tx.Ceiling(),
		"period_ticks", a.period)

	return a
}

// rearm continues a periodic chain at the next step after the current
// invocation's baseline.
func (a *app) rearm(cx *sched.Context) error {
	return ignoreArmed(cx.Schedule(cx.Task(), cx.Scheduled().Add(a.period)))
}

// ignoreArmed treats a request for a task that already has one outstanding as
// success: that chain is already running.
func ignoreArmed(err error) error {
	if errors.Is(err, sched.ErrAlreadyArmed) {
		return nil
	}
	return err
}

// animate is the periodic cycle step. The chain ends once the ring leaves
// cycle mode.
func (a *app) animate(cx *sched.Context) error {
	var again bool
	a.ring.Lock(cx, func(r *ring.Ring) {
		if r.IsCycle() {
			r.Advance()
			again = true
		}
	})

	if !again {
		a.logger.Debug("animation stopped")
		return nil
	}
	return a.rearm(cx)
}

// sample is the periodic accelerometer step. Every level sample is reported
// on the console, whatever the mode. The chain ends once the ring leaves
// accelerometer mode.
func (a *app) sample(cx *sched.Context) error {
	s, err := a.accel.Read()
	if err != nil {
		return err
	}

	if s.Level() {
		a.tx.Lock(cx, func(tx *console.Transmitter) {
			err = tx.Notify(console.NotifyLevel)
		})
		if err != nil {
			return err
		}
	}

	var again bool
	a.ring.Lock(cx, func(r *ring.Ring) {
		if r.IsAccelerometer() {
			r.SpecificOn(s.Pattern())
			again = true
		}
	})

	if !again {
		a.logger.Debug("sampling stopped")
		return nil
	}
	return a.rearm(cx)
}

// pressed handles a button press: it reverses the ring and reports the press.
func (a *app) pressed(cx *sched.Context) error {
	a.btn.ClearPending()

	a.ring.Lock(cx, func(r *ring.Ring) {
		r.Reverse()
		a.logger.Debug("button pressed", "direction", r.Direction())
	})

	var err error
	a.tx.Lock(cx, func(tx *console.Transmitter) {
		err = tx.Notify(console.NotifyButton)
	})
	return err
}

// received handles one byte from the receive FIFO. It pends itself again
// while bytes remain, like a level-triggered receive interrupt.
func (a *app) received(cx *sched.Context) error {
	var c byte
	select {
	case c = <-a.rx:
	default:
		return nil
	}

	line := a.interp.Line()
	ctl := controller{a: a, cx: cx}

	var err error
	a.tx.Lock(cx, func(tx *console.Transmitter) {
		err = a.interp.Feed(tx, ctl, c)
	})

	switch {
	case errors.Is(err, console.ErrBufferFull):
		a.logger.Warn("command buffer full", "err", err)
	case err != nil:
		return err
	case c == console.CR && !console.IsCommand(line):
		a.logger.Debug("unknown command", "line", line)
	case c == console.CR:
		a.logger.Debug("ran command", "line", line)
	}

	if len(a.rx) > 0 {
		a.kernel.Pend(a.serial)
	}
	return nil
}

// receive moves bytes from the console into the receive FIFO and raises the
// serial interrupt. Bytes that do not fit are dropped.
func (a *app) receive(ctx context.Context) error {
	var buf [rxFIFOSize]byte

	for {
		n, err := a.console.Read(buf[:])
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return errors.Wrap(err, "failed to read console")
		}

		for _, c := range buf[:n] {
			select {
			case a.rx <- c:
			default:
				a.logger.Warn("console receive overflow, dropping byte", "byte", c)
			}
		}

		if n > 0 {
			a.kernel.Pend(a.serial)
		}
	}
}

// controller gives console commands access to the ring and the periodic
// tasks from within the serial handler.
type controller struct {
	a  *app
	cx *sched.Context
}

var _ console.Controller = controller{}

func (c controller) UpdateRing(f func(console.Ring)) {
	c.a.ring.Lock(c.cx, func(r *ring.Ring) { f(r) })
}

func (c controller) StartCycle() error {
	return ignoreArmed(c.cx.Spawn(c.a.animation))
}

func (c controller) StartAccelerometer() error {
	return ignoreArmed(c.cx.Spawn(c.a.sensor))
}
