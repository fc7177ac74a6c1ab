package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPin struct {
	state       bool
	highs, lows int
}

func (p *mockPin) High() {
	p.highs++
	p.state = true
}

func (p *mockPin) Low() {
	p.lows++
	p.state = false
}

func newMockRing() (*Ring, [NumLEDs]*mockPin) {
	var mocks [NumLEDs]*mockPin
	var pins [NumLEDs]Pin
	for i := range mocks {
		mocks[i] = &mockPin{}
		pins[i] = mocks[i]
	}
	return New(pins), mocks
}

func states(mocks [NumLEDs]*mockPin) Pattern {
	var p Pattern
	for i, m := range mocks {
		p[i] = m.state
	}
	return p
}

func TestDirectionFlip(t *testing.T) {
	assert.Equal(t, CounterClockwise, Clockwise.Flip())
	assert.Equal(t, Clockwise, CounterClockwise.Flip())
}

func TestNew(t *testing.T) {
	r, mocks := newMockRing()

	assert.Equal(t, Clockwise, r.Direction())
	assert.Equal(t, Cycle, r.Mode())
	assert.Equal(t, 0, r.Index())
	assert.Equal(t, Pattern{}, states(mocks), "construction writes no pins")
}

func TestModes(t *testing.T) {
	r, _ := newMockRing()

	check := func(mode Mode) {
		t.Helper()
		assert.Equal(t, mode, r.Mode())
		assert.Equal(t, mode == Cycle, r.IsCycle())
		assert.Equal(t, mode == Accelerometer, r.IsAccelerometer())
	}

	r.EnableAccelerometer()
	check(Accelerometer)
	r.EnableAccelerometer()
	check(Accelerometer)

	r.Disable()
	check(Off)
	r.Disable()
	check(Off)

	r.EnableCycle()
	check(Cycle)
	r.EnableCycle()
	check(Cycle)
}

func TestReverse(t *testing.T) {
	r, mocks := newMockRing()
	r.AllOn()

	r.Reverse()
	assert.Equal(t, CounterClockwise, r.Direction())
	assert.Equal(t, Pattern{true, true, true, true}, states(mocks), "reverse does not redraw")

	r.Reverse()
	assert.Equal(t, Clockwise, r.Direction())
}

func TestAdvanceSequence(t *testing.T) {
	r, mocks := newMockRing()

	want := []Pattern{
		{true, false, false, false},
		{true, true, false, false},
		{false, true, true, false},
		{false, false, true, true},
		{true, false, false, true},
		{true, true, false, false},
	}
	for i, p := range want {
		r.Advance()
		assert.Equal(t, p, states(mocks), "after advance %d", i+1)
	}
}

func TestAdvanceCounterClockwise(t *testing.T) {
	r, mocks := newMockRing()
	r.Reverse()

	want := []Pattern{
		{true, false, false, false},
		{true, false, false, true},
		{false, false, true, true},
		{false, true, true, false},
		{true, true, false, false},
	}
	for i, p := range want {
		r.Advance()
		assert.Equal(t, p, states(mocks), "after advance %d", i+1)
	}
}

func TestAdvanceRoundTrip(t *testing.T) {
	for _, dir := range []Direction{Clockwise, CounterClockwise} {
		for start := 0; start < NumLEDs; start++ {
			r, mocks := newMockRing()
			r.direction = dir
			r.index = start

			// Prime the ring so every light has been lit once and two remain on.
			for i := 0; i < NumLEDs; i++ {
				r.Advance()
			}
			require.Equal(t, start, r.Index(), "%v from %d", dir, start)

			for _, m := range mocks {
				m.highs, m.lows = 0, 0
			}

			for i := 0; i < NumLEDs; i++ {
				r.Advance()
				assert.GreaterOrEqual(t, r.Index(), 0)
				assert.Less(t, r.Index(), NumLEDs)

				var lit int
				for _, m := range mocks {
					if m.state {
						lit++
					}
				}
				assert.Equal(t, 2, lit, "%v from %d: two lights lit", dir, start)
			}

			assert.Equal(t, start, r.Index(), "%v from %d", dir, start)
			for i, m := range mocks {
				assert.Equal(t, 1, m.highs, "%v from %d: pin %d lit once", dir, start, i)
				assert.Equal(t, 1, m.lows, "%v from %d: pin %d cleared once", dir, start, i)
			}
		}
	}
}

func TestDirectionTakesEffectOnNextAdvance(t *testing.T) {
	r, mocks := newMockRing()
	r.Advance()
	r.Advance()
	require.Equal(t, 2, r.Index())

	r.Reverse()
	assert.Equal(t, Pattern{true, true, false, false}, states(mocks))

	r.Advance()
	assert.Equal(t, 1, r.Index())
	assert.Equal(t, Pattern{false, true, true, false}, states(mocks))
}

func TestAllOnOff(t *testing.T) {
	r, mocks := newMockRing()
	r.Disable()

	r.AllOn()
	assert.Equal(t, Pattern{true, true, true, true}, states(mocks))
	r.AllOff()
	assert.Equal(t, Pattern{}, states(mocks))
	assert.Equal(t, Off, r.Mode())
}

func TestSpecificOn(t *testing.T) {
	r, mocks := newMockRing()

	r.SpecificOn(Pattern{true, false, true, false})
	assert.Equal(t, Pattern{true, false, true, false}, states(mocks))
	assert.Equal(t, Cycle, r.Mode(), "mode is untouched")

	r.SpecificOn(Pattern{false, true, false, false})
	assert.Equal(t, Pattern{false, true, false, false}, states(mocks))
}

func TestPatternString(t *testing.T) {
	assert.Equal(t, "●○●○", Pattern{true, false, true, false}.String())
}
