// Package ledring runs a ring of four lights from a serial command console,
// a push button and an accelerometer.
package ledring

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledring/accel"
	"libdb.so/ledring/console"
	"libdb.so/ledring/internal/sched"
	"libdb.so/ledring/ring"
)

// Button is a push button that raises an interrupt on every press.
type Button interface {
	// Watch calls pressed for every press until ctx is canceled. Presses
	// that arrive while one is pending are merged into it.
	Watch(ctx context.Context, pressed func()) error
	// ClearPending acknowledges the pending press.
	ClearPending()
}

// Hardware is the set of peripherals the daemon runs on. Each peripheral is
// handed to exactly one owner when the daemon starts.
type Hardware struct {
	// LEDs are the light pins ordered east, south, west, north.
	LEDs [ring.NumLEDs]ring.Pin
	// Sensor is the accelerometer bus.
	Sensor accel.Conn
	// Button is the push button.
	Button Button
	// Console is the serial console. It is closed when the daemon stops.
	Console io.ReadWriteCloser
	// Clock is the tick counter.
	Clock sched.Clock
}

// Daemon is the main ledring daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
}

// NewDaemon creates a new ledring daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run opens the configured peripherals and runs the daemon on them. It blocks
// until the given context is canceled or a peripheral fails.
func (d *Daemon) Run(ctx context.Context) error {
	hw, err := d.openHardware()
	if err != nil {
		return err
	}
	defer hw.close()

	return d.RunHardware(ctx, hw.Hardware)
}

// RunHardware runs the daemon on the given peripherals. It blocks until the
// given context is canceled or a peripheral fails, in which case the error is
// returned.
func (d *Daemon) RunHardware(ctx context.Context, hw Hardware) error {
	r := ring.New(hw.LEDs)

	sensor, err := accel.Open(hw.Sensor)
	if err != nil {
		hw.Console.Close()
		return err
	}

	a := newApp(d, hw, r, sensor)

	if err := a.kernel.Spawn(a.animation); err != nil {
		hw.Console.Close()
		return errors.Wrap(err, "failed to start animation")
	}

	d.logger.Debug("sending init notification")
	if err := a.txLine.Notify(console.NotifyInit); err != nil {
		hw.Console.Close()
		return err
	}

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("closing console")
		if err := hw.Console.Close(); err != nil {
			return errors.Wrap(err, "failed to close console")
		}
		return ctx.Err()
	})

	rxErr := make(chan error, 1)
	go func() { rxErr <- a.receive(ctx) }()

	// Reads from stdin cannot be interrupted, so the receiver is not waited
	// for. Its error still stops the daemon.
	errg.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-rxErr:
			return err
		}
	})

	errg.Go(func() error {
		return hw.Button.Watch(ctx, func() { a.kernel.Pend(a.button) })
	})

	errg.Go(func() error {
		return a.kernel.Run(ctx)
	})

	return errg.Wait()
}
