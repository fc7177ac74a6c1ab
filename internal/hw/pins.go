package hw

import (
	"fmt"

	"github.com/pkg/errors"
	"libdb.so/ledring/ring"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Pin is a light output on a periph.io GPIO pin. A failed write panics, which
// the scheduler treats as a fatal task failure.
type Pin struct {
	pin gpio.PinOut
}

var _ ring.Pin = (*Pin)(nil)

// NewPin wraps an output pin.
func NewPin(pin gpio.PinOut) *Pin {
	return &Pin{pin: pin}
}

// High implements ring.Pin.
func (p *Pin) High() { p.out(gpio.High) }

// Low implements ring.Pin.
func (p *Pin) Low() { p.out(gpio.Low) }

func (p *Pin) out(l gpio.Level) {
	if err := p.pin.Out(l); err != nil {
		panic(fmt.Sprintf("failed to drive %s %s: %v", p.pin, l, err))
	}
}

// OpenLEDs looks up the four light pins by name, ordered east, south, west,
// north, and drives them low.
func OpenLEDs(names [ring.NumLEDs]string) ([ring.NumLEDs]ring.Pin, error) {
	var pins [ring.NumLEDs]ring.Pin

	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return pins, fmt.Errorf("no such GPIO pin %q", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return pins, errors.Wrapf(err, "failed to configure %s as output", name)
		}
		pins[i] = NewPin(p)
	}

	return pins, nil
}
