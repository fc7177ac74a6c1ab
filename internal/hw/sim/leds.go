// Package sim provides simulated peripherals for running the light ring
// without hardware.
package sim

import (
	"log/slog"
	"sync"

	"libdb.so/ledring/ring"
)

// LEDs is a simulated ring of lights. Every change is logged as a rendered
// pattern such as "●●○○".
type LEDs struct {
	mu     sync.Mutex
	state  ring.Pattern
	logger *slog.Logger
}

// NewLEDs creates a ring of simulated lights, all off.
func NewLEDs(logger *slog.Logger) *LEDs {
	return &LEDs{logger: logger}
}

// Pins returns the pins of the simulated lights, ordered east, south, west,
// north.
func (l *LEDs) Pins() [ring.NumLEDs]ring.Pin {
	var pins [ring.NumLEDs]ring.Pin
	for i := range pins {
		pins[i] = ledPin{l, i}
	}
	return pins
}

// Pattern returns the current state of the lights.
func (l *LEDs) Pattern() ring.Pattern {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Set sets the light at the given index.
func (l *LEDs) Set(i int, on bool) {
	l.mu.Lock()
	changed := l.state[i] != on
	l.state[i] = on
	state := l.state
	l.mu.Unlock()

	if changed && l.logger != nil {
		l.logger.Info("lights changed", "ring", state.String())
	}
}

type ledPin struct {
	leds *LEDs
	i    int
}

func (p ledPin) High() { p.leds.Set(p.i, true) }
func (p ledPin) Low()  { p.leds.Set(p.i, false) }
