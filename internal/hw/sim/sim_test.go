package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledring/accel"
	"libdb.so/ledring/ring"
)

func TestLEDs(t *testing.T) {
	leds := NewLEDs(nil)
	r := ring.New(leds.Pins())

	r.Advance()
	r.Advance()
	assert.Equal(t, ring.Pattern{true, true, false, false}, leds.Pattern())

	r.AllOff()
	assert.Equal(t, ring.Pattern{}, leds.Pattern())
}

func TestAccelerometer(t *testing.T) {
	a := NewAccelerometer(-5, 12, 0)

	s, err := accel.Open(a)
	require.NoError(t, err)
	assert.True(t, a.Configured())

	sample, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, accel.Sample{X: -5, Y: 12}, sample)

	a.SetTilt(0, 0)
	sample, err = s.Read()
	require.NoError(t, err)
	assert.True(t, sample.Level())
}

func TestAccelerometerUnconfigured(t *testing.T) {
	a := NewAccelerometer(-5, 12, 0)

	w := []byte{accel.ReadCommand, 0, 0, 0}
	r := make([]byte, len(w))
	require.NoError(t, a.Tx(w, r))
	assert.Equal(t, []byte{0, 0, 0, 0}, r)
	assert.False(t, a.Configured())
}

func TestAccelerometerDrift(t *testing.T) {
	a := NewAccelerometer(64, 0, time.Second)
	now := a.started
	a.now = func() time.Time { return now }

	s, err := accel.Open(a)
	require.NoError(t, err)

	read := func() accel.Sample {
		sample, err := s.Read()
		require.NoError(t, err)
		return sample
	}

	assert.Equal(t, accel.Sample{X: 64, Y: 0}, read())

	now = now.Add(time.Second)
	assert.Equal(t, accel.Sample{X: 0, Y: 64}, read())

	now = now.Add(time.Second)
	assert.Equal(t, accel.Sample{X: -64, Y: 0}, read())
}

func TestAccelerometerBadTransfer(t *testing.T) {
	a := NewAccelerometer(0, 0, 0)
	assert.Error(t, a.Tx([]byte{accel.ReadCommand, 0}, make([]byte, 1)))
}

func TestSignalButtonStops(t *testing.T) {
	b := NewSignalButton()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Watch(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)
}
