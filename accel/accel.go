// Package accel reads the on-board accelerometer over its synchronous serial
// bus and maps tilt samples to light ring patterns.
package accel

import (
	"github.com/pkg/errors"
	"libdb.so/ledring/ring"
)

// Conn is a full-duplex synchronous serial connection. A periph.io spi.Conn
// satisfies this interface.
type Conn interface {
	// Tx writes w and reads len(r) bytes into r at the same time.
	Tx(w, r []byte) error
}

// Register addresses and values of the accelerometer.
const (
	// RegCtrl4 configures the output data rate and the enabled axes.
	RegCtrl4 = 0x20
	// RegOutX is the first output register. The Y axis follows two
	// registers later.
	RegOutX = 0x29

	// Ctrl4Value selects a 25 Hz output data rate with X, Y and Z enabled.
	Ctrl4Value = 0b0100_0111

	// ReadFlag marks a transfer as a register read.
	ReadFlag = 1 << 7
	// IncrementFlag makes the device auto-increment the register address.
	IncrementFlag = 1 << 6
)

// InitCommand is the configuration write sent once before sampling.
var InitCommand = [2]byte{RegCtrl4, Ctrl4Value}

// ReadCommand is the first byte of every sample transfer.
const ReadCommand = ReadFlag | IncrementFlag | RegOutX

// Byte offsets of the axes in a sample transfer response.
const (
	offsetX = 1
	offsetY = 3
)

// Sample is one accelerometer reading. The magnitude of each axis gives the
// tilt and the sign gives the direction along that axis.
type Sample struct {
	X int8
	Y int8
}

// Level reports whether the board reads exactly level on both axes.
func (s Sample) Level() bool {
	return s.X == 0 && s.Y == 0
}

// Pattern maps the sample to a ring pattern. See Map.
func (s Sample) Pattern() ring.Pattern {
	return Map(s.X, s.Y)
}

// Map converts two axis readings to the lights pointing down:
// [east, south, west, north] = [y<0, x<0, y>0, x>0]. A level board yields an
// all-off pattern.
func Map(x, y int8) ring.Pattern {
	return ring.Pattern{y < 0, x < 0, y > 0, x > 0}
}

// Sensor is an initialized accelerometer. It is owned by a single task.
type Sensor struct {
	conn Conn
	w    [4]byte
	r    [4]byte
}

// Open configures the accelerometer on the given connection.
func Open(conn Conn) (*Sensor, error) {
	cmd := InitCommand
	var resp [len(InitCommand)]byte

	if err := conn.Tx(cmd[:], resp[:]); err != nil {
		return nil, errors.Wrap(err, "failed to configure accelerometer")
	}

	return &Sensor{conn: conn}, nil
}

// Read performs one sample transfer. It blocks for the duration of the bus
// transfer.
func (s *Sensor) Read() (Sample, error) {
	s.w = [4]byte{ReadCommand}
	s.r = [4]byte{}

	if err := s.conn.Tx(s.w[:], s.r[:]); err != nil {
		return Sample{}, errors.Wrap(err, "failed to read accelerometer")
	}

	return Sample{
		X: int8(s.r[offsetX]),
		Y: int8(s.r[offsetY]),
	}, nil
}
