// Package ring implements the four-light ring state machine.
package ring

import "fmt"

// NumLEDs is the number of lights on the ring.
const NumLEDs = 4

// Pin is a digital output driving one light. machine.Pin in TinyGo satisfies
// this interface. Writes are infallible at this level; adapters that can fail
// must treat failure as fatal.
type Pin interface {
	High()
	Low()
}

// Direction is the cycle direction of the ring, as seen with the reference
// edge of the board facing the viewer.
type Direction uint8

const (
	// Clockwise cycles east, south, west, north.
	Clockwise Direction = iota
	// CounterClockwise cycles east, north, west, south.
	CounterClockwise
)

// Flip returns the reversed direction.
func (d Direction) Flip() Direction {
	if d == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Mode is the animation mode of the ring. Exactly one mode is active.
type Mode uint8

const (
	// Off means no task drives the ring.
	Off Mode = iota
	// Cycle means the lights rotate with two adjacent lights lit.
	Cycle
	// Accelerometer means the lights show which side of the board points down.
	Accelerometer
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case Cycle:
		return "cycle"
	case Accelerometer:
		return "accelerometer"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Pattern is a per-light on/off pattern in pin order: east, south, west,
// north.
type Pattern [NumLEDs]bool

func (p Pattern) String() string {
	var b [NumLEDs]rune
	for i, on := range p {
		if on {
			b[i] = '●'
		} else {
			b[i] = '○'
		}
	}
	return string(b[:])
}

// Ring is the light ring. It is not safe for concurrent use; callers share it
// through a scheduler resource.
type Ring struct {
	direction Direction
	mode      Mode
	index     int
	leds      [NumLEDs]Pin
}

// New creates a ring driving the given pins, ordered east, south, west,
// north. The ring starts in cycle mode, clockwise, at index 0. Pins are not
// written.
func New(leds [NumLEDs]Pin) *Ring {
	return &Ring{
		direction: Clockwise,
		mode:      Cycle,
		index:     0,
		leds:      leds,
	}
}

// Mode returns the current mode.
func (r *Ring) Mode() Mode { return r.mode }

// Direction returns the current cycle direction.
func (r *Ring) Direction() Direction { return r.direction }

// Index returns the position that the next Advance lights.
func (r *Ring) Index() int { return r.index }

// EnableCycle switches to cycle mode.
func (r *Ring) EnableCycle() { r.mode = Cycle }

// EnableAccelerometer switches to accelerometer mode.
func (r *Ring) EnableAccelerometer() { r.mode = Accelerometer }

// Disable switches the ring off. The lights keep their current state.
func (r *Ring) Disable() { r.mode = Off }

// IsCycle reports whether the ring is in cycle mode.
func (r *Ring) IsCycle() bool { return r.mode == Cycle }

// IsAccelerometer reports whether the ring is in accelerometer mode.
func (r *Ring) IsAccelerometer() bool { return r.mode == Accelerometer }

// Reverse flips the cycle direction. Nothing is redrawn; the new direction is
// used by the next Advance.
func (r *Ring) Reverse() { r.direction = r.direction.Flip() }

// Advance steps the cycle animation once. It lights the current index, clears
// the light opposite to it and moves the index one step in the current
// direction. The pins are written regardless of the mode.
func (r *Ring) Advance() {
	r.leds[r.index].High()
	r.leds[(r.index+2)%NumLEDs].Low()

	switch r.direction {
	case Clockwise:
		r.index = (r.index + 1) % NumLEDs
	case CounterClockwise:
		r.index = (r.index + NumLEDs - 1) % NumLEDs
	}
}

// AllOn turns every light on. The mode is unchanged.
func (r *Ring) AllOn() {
	for _, led := range r.leds {
		led.High()
	}
}

// AllOff turns every light off. The mode is unchanged.
func (r *Ring) AllOff() {
	for _, led := range r.leds {
		led.Low()
	}
}

// SpecificOn sets every light to the given pattern. The mode is unchanged.
func (r *Ring) SpecificOn(p Pattern) {
	for i, on := range p {
		if on {
			r.leds[i].High()
		} else {
			r.leds[i].Low()
		}
	}
}
