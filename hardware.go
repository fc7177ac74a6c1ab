package ledring

import (
	"fmt"
	"time"

	"libdb.so/ledring/internal/hw"
	"libdb.so/ledring/internal/hw/sim"
)

type openedHardware struct {
	Hardware
	closers []func() error
}

// close releases everything but the console, which the daemon closes itself.
func (h *openedHardware) close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

func (d *Daemon) openHardware() (*openedHardware, error) {
	var h openedHardware
	var err error

	switch d.cfg.Driver {
	case PeriphDriver:
		err = d.openPeriph(&h)
	case SimDriver:
		d.openSim(&h)
	default:
		err = fmt.Errorf("unknown driver %q", d.cfg.Driver)
	}
	if err != nil {
		h.close()
		return nil, err
	}

	clock := hw.NewCounter(d.cfg.Clock.Hz)
	h.Clock = clock
	d.logger.Debug(
		"using tick counter",
		"hz", d.cfg.Clock.Hz,
		"step", clock.Duration(d.cfg.Period()))

	console, err := hw.OpenConsole(d.cfg.Console.Device, d.cfg.Console.Baud)
	if err != nil {
		h.close()
		return nil, err
	}
	h.Console = console

	d.logger.Debug(
		"opened hardware",
		"driver", d.cfg.Driver,
		"console", d.cfg.Console.Device,
		"baud", d.cfg.Console.Baud)

	return &h, nil
}

func (d *Daemon) openPeriph(h *openedHardware) error {
	if err := hw.Init(); err != nil {
		return err
	}

	leds, err := hw.OpenLEDs(d.cfg.Pins.LEDPins())
	if err != nil {
		return err
	}
	h.LEDs = leds

	button, err := hw.OpenButton(d.cfg.Pins.Button)
	if err != nil {
		return err
	}
	h.Button = button

	bus, err := hw.OpenSensorBus(d.cfg.Sensor.Bus, d.cfg.Sensor.Freq)
	if err != nil {
		return err
	}
	h.Sensor = bus
	h.closers = append(h.closers, bus.Close)

	return nil
}

func (d *Daemon) openSim(h *openedHardware) {
	leds := sim.NewLEDs(d.logger.With("component", "sim"))
	h.LEDs = leds.Pins()
	h.Sensor = sim.NewAccelerometer(
		d.cfg.Sim.X,
		d.cfg.Sim.Y,
		time.Duration(d.cfg.Sim.Drift))
	h.Button = sim.NewSignalButton()

	d.logger.Info("using simulated peripherals, send SIGUSR1 to press the button")
}
