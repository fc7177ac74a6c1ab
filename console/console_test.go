package console

import (
	"bytes"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRing struct {
	calls []string
}

func (r *fakeRing) Reverse()             { r.calls = append(r.calls, "reverse") }
func (r *fakeRing) Disable()             { r.calls = append(r.calls, "disable") }
func (r *fakeRing) EnableCycle()         { r.calls = append(r.calls, "cycle") }
func (r *fakeRing) EnableAccelerometer() { r.calls = append(r.calls, "accel") }
func (r *fakeRing) AllOn()               { r.calls = append(r.calls, "all-on") }
func (r *fakeRing) AllOff()              { r.calls = append(r.calls, "all-off") }

type fakeController struct {
	ring       fakeRing
	locks      int
	cycles     int
	accels     int
	startError error
}

func (c *fakeController) UpdateRing(f func(Ring)) {
	c.locks++
	f(&c.ring)
}

func (c *fakeController) StartCycle() error {
	c.cycles++
	return c.startError
}

func (c *fakeController) StartAccelerometer() error {
	c.accels++
	return c.startError
}

type harness struct {
	in  *Interpreter
	out bytes.Buffer
	tx  *Transmitter
	ctl fakeController
}

func newHarness() *harness {
	h := &harness{in: NewInterpreter()}
	h.tx = NewTransmitter(&h.out)
	return h
}

func (h *harness) feed(t *testing.T, s string) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		require.NoError(t, h.in.Feed(h.tx, &h.ctl, s[i]))
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		line   string
		calls  []string
		cycles int
		accels int
	}{
		{"flip", []string{"reverse"}, 0, 0},
		{"stop", []string{"disable"}, 0, 0},
		{"cycle", []string{"cycle"}, 1, 0},
		{"accel", []string{"accel"}, 0, 1},
		{"off", []string{"disable", "all-off"}, 0, 0},
		{"on", []string{"disable", "all-on"}, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			h := newHarness()
			h.feed(t, test.line+"\r")

			assert.Equal(t, test.calls, h.ctl.ring.calls)
			assert.Equal(t, 1, h.ctl.locks)
			assert.Equal(t, test.cycles, h.ctl.cycles)
			assert.Equal(t, test.accels, h.ctl.accels)
			assert.Equal(t, test.line+"\r\n", h.out.String())
			assert.Empty(t, h.in.Line())
		})
	}
}

func TestCommandTable(t *testing.T) {
	names := Commands()
	sort.Strings(names)
	assert.Equal(t, []string{"accel", "cycle", "flip", "off", "on", "stop"}, names)
}

func TestCycleClearsBuffer(t *testing.T) {
	h := newHarness()

	h.feed(t, "cycle\r")
	assert.Equal(t, 1, h.ctl.cycles)
	assert.Equal(t, []string{"cycle"}, h.ctl.ring.calls)

	h.feed(t, "x")
	assert.Equal(t, "x", h.in.Line())
	assert.Equal(t, 1, h.ctl.cycles)
}

func TestUnknownCommand(t *testing.T) {
	tests := []string{"", "Flip", "flip ", "cyc", "x"}

	for _, line := range tests {
		h := newHarness()
		h.feed(t, line+"\r")

		assert.Equal(t, line+"\r\n?\r", h.out.String(), "line %q", line)
		assert.Empty(t, h.ctl.ring.calls, "line %q", line)
		assert.Zero(t, h.ctl.locks, "line %q", line)
		assert.Empty(t, h.in.Line(), "line %q", line)
	}
}

func TestBufferFull(t *testing.T) {
	h := newHarness()
	h.feed(t, "abcdefgh")

	err := h.in.Feed(h.tx, &h.ctl, 'i')
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, "abcdefgh", h.in.Line())
	assert.Equal(t, "abcdefghi", h.out.String(), "dropped byte is still echoed")

	// The interpreter keeps working after the overflow.
	h.feed(t, "\r")
	assert.Equal(t, "abcdefghi\r\n?\r", h.out.String())
	assert.Empty(t, h.in.Line())
}

func TestDelete(t *testing.T) {
	h := newHarness()

	h.feed(t, "flipx\x7f")
	assert.Equal(t, "flip", h.in.Line())
	assert.Equal(t, "flipx\rflip", h.out.String())

	h.feed(t, "\r")
	assert.Equal(t, []string{"reverse"}, h.ctl.ring.calls)
}

func TestDeleteEmpty(t *testing.T) {
	h := newHarness()

	h.feed(t, "\x7f")
	assert.Empty(t, h.in.Line())
	assert.Equal(t, "\r", h.out.String())

	h.feed(t, "\x7f\x7f")
	assert.Equal(t, "\r\r\r", h.out.String())
}

func TestDeleteFullBuffer(t *testing.T) {
	h := newHarness()
	h.feed(t, "abcdefgh")

	h.feed(t, "\x7f")
	assert.Equal(t, "abcdefg", h.in.Line())

	h.feed(t, "z")
	assert.Equal(t, "abcdefgz", h.in.Line())
}

func TestCommandError(t *testing.T) {
	h := newHarness()
	h.ctl.startError = errors.New("scheduler halted")

	for _, c := range []byte("accel") {
		require.NoError(t, h.in.Feed(h.tx, &h.ctl, c))
	}
	err := h.in.Feed(h.tx, &h.ctl, CR)
	assert.ErrorIs(t, err, h.ctl.startError)
	assert.Empty(t, h.in.Line())
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestTransmitError(t *testing.T) {
	writeErr := errors.New("port closed")
	tx := NewTransmitter(failingWriter{writeErr})
	in := NewInterpreter()

	assert.ErrorIs(t, in.Feed(tx, &fakeController{}, 'a'), writeErr)
	assert.ErrorIs(t, tx.Notify(NotifyButton), writeErr)
}

func TestNotify(t *testing.T) {
	var out bytes.Buffer
	tx := NewTransmitter(&out)

	require.NoError(t, tx.Notify(NotifyInit))
	require.NoError(t, tx.Notify(NotifyButton))
	require.NoError(t, tx.Notify(NotifyLevel))
	assert.Equal(t, "init\rbutton\rlevel\r", out.String())
}
