package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"libdb.so/ledring/accel"
)

// Accelerometer models the accelerometer's register interface on the sensor
// bus. Reads return zero until the control register has been configured.
type Accelerometer struct {
	mu      sync.Mutex
	regs    [0x40]byte
	x, y    int8
	drift   time.Duration
	started time.Time
	now     func() time.Time
}

var _ accel.Conn = (*Accelerometer)(nil)

// NewAccelerometer creates a simulated accelerometer reading the given tilt.
// If drift is positive, the tilt vector turns a quarter around the board every
// drift, so that accelerometer mode visibly moves.
func NewAccelerometer(x, y int8, drift time.Duration) *Accelerometer {
	return &Accelerometer{
		x:       x,
		y:       y,
		drift:   drift,
		started: time.Now(),
		now:     time.Now,
	}
}

// SetTilt sets the static tilt.
func (a *Accelerometer) SetTilt(x, y int8) {
	a.mu.Lock()
	a.x, a.y = x, y
	a.mu.Unlock()
}

// Configured reports whether the control register has been written with a
// non-zero data rate.
func (a *Accelerometer) Configured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs[accel.RegCtrl4]&0xF0 != 0
}

// Tx implements accel.Conn. The first byte is the register address with the
// read and auto-increment flags; the remaining bytes are data.
func (a *Accelerometer) Tx(w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	if len(r) != 0 && len(r) != len(w) {
		return fmt.Errorf("sim: mismatched transfer lengths %d and %d", len(w), len(r))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.latch()

	addr := int(w[0] & 0x3F)
	read := w[0]&accel.ReadFlag != 0
	inc := w[0]&accel.IncrementFlag != 0

	for i := 1; i < len(w); i++ {
		if addr >= len(a.regs) {
			return fmt.Errorf("sim: register 0x%02x out of range", addr)
		}
		if read {
			if len(r) > 0 {
				r[i] = a.regs[addr]
			}
		} else {
			a.regs[addr] = w[i]
		}
		if inc || !read {
			addr++
		}
	}

	return nil
}

// latch copies the current tilt into the output registers.
func (a *Accelerometer) latch() {
	if a.regs[accel.RegCtrl4]&0xF0 == 0 {
		a.regs[accel.RegOutX] = 0
		a.regs[accel.RegOutX+2] = 0
		return
	}

	x, y := a.x, a.y
	if a.drift > 0 {
		turns := float64(a.now().Sub(a.started)) / float64(4*a.drift)
		angle := 2 * math.Pi * turns
		mag := math.Hypot(float64(x), float64(y))
		if mag == 0 {
			mag = 64
		}
		x = clampInt8(mag * math.Cos(angle))
		y = clampInt8(mag * math.Sin(angle))
	}

	a.regs[accel.RegOutX] = byte(x)
	a.regs[accel.RegOutX+2] = byte(y)
}

func clampInt8(v float64) int8 {
	return int8(math.Max(math.MinInt8, math.Min(math.MaxInt8, math.Round(v))))
}
