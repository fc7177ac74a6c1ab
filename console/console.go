// Package console implements the line-oriented serial command protocol.
//
// Every received byte is echoed. A carriage return ends the line and runs the
// matching command; a delete erases the last byte and redraws the line. The
// line buffer holds at most BufferSize bytes.
package console

import (
	"io"

	"github.com/pkg/errors"
)

// Control codes understood by the interpreter.
const (
	CR  = 0x0D
	LF  = 0x0A
	DEL = 0x7F
)

// BufferSize is the capacity of the line buffer.
const BufferSize = 8

// ErrBufferFull is returned by Feed when a byte was dropped because the line
// buffer is full. The interpreter stays usable.
var ErrBufferFull = errors.New("command buffer full")

// Notification is a line sent to the console without being asked.
type Notification string

const (
	// NotifyInit is sent once the system has started.
	NotifyInit Notification = "init"
	// NotifyButton is sent on every button press.
	NotifyButton Notification = "button"
	// NotifyLevel is sent for every sample that reads level on both axes.
	NotifyLevel Notification = "level"
	// NotifyUnknown is the reply to a line that matches no command.
	NotifyUnknown Notification = "?"
)

// Buffer is the in-progress command line.
type Buffer struct {
	b [BufferSize]byte
	n int
}

// Append adds c to the buffer. It returns false if the buffer is full.
func (b *Buffer) Append(c byte) bool {
	if b.n == len(b.b) {
		return false
	}
	b.b[b.n] = c
	b.n++
	return true
}

// Backspace removes the last byte. It returns false if the buffer is empty.
func (b *Buffer) Backspace() bool {
	if b.n == 0 {
		return false
	}
	b.n--
	return true
}

// Reset empties the buffer.
func (b *Buffer) Reset() { b.n = 0 }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return b.n }

// Bytes returns the buffered bytes. The slice is valid until the next
// modification.
func (b *Buffer) Bytes() []byte { return b.b[:b.n] }

// String returns the buffered bytes as a string.
func (b *Buffer) String() string { return string(b.b[:b.n]) }

// Transmitter is the serial transmit line. It is shared by several tasks and
// must only be used from within a resource lock.
type Transmitter struct {
	w io.Writer
	b [1]byte
}

// NewTransmitter creates a transmitter writing to w.
func NewTransmitter(w io.Writer) *Transmitter {
	return &Transmitter{w: w}
}

// WriteByte writes a single byte. It may block under back-pressure.
func (t *Transmitter) WriteByte(c byte) error {
	t.b[0] = c
	_, err := t.w.Write(t.b[:])
	return err
}

// Write writes p in full.
func (t *Transmitter) Write(p []byte) (int, error) {
	return t.w.Write(p)
}

// Notify writes the notification followed by a carriage return.
func (t *Transmitter) Notify(n Notification) error {
	if _, err := io.WriteString(t.w, string(n)+"\r"); err != nil {
		return errors.Wrapf(err, "failed to send %q notification", n)
	}
	return nil
}

// Interpreter runs the command protocol over bytes received from the console.
// It is not safe for concurrent use; it belongs to the serial-line handler.
type Interpreter struct {
	buf Buffer
}

// NewInterpreter creates an interpreter with an empty line.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Line returns the in-progress line.
func (in *Interpreter) Line() string {
	return in.buf.String()
}

// Feed processes one received byte. Echo and replies go to tx; commands act
// on ctl. It returns ErrBufferFull if the byte was dropped, and a wrapped
// error for transmit or command failures, which are not recoverable.
func (in *Interpreter) Feed(tx *Transmitter, ctl Controller, c byte) error {
	switch c {
	case DEL:
		in.buf.Backspace()
		if err := tx.WriteByte(CR); err != nil {
			return errors.Wrap(err, "failed to redraw line")
		}
		if in.buf.Len() > 0 {
			if _, err := tx.Write(in.buf.Bytes()); err != nil {
				return errors.Wrap(err, "failed to redraw line")
			}
		}
		return nil

	case CR:
		if err := tx.WriteByte(CR); err != nil {
			return errors.Wrap(err, "failed to echo")
		}
		if err := tx.WriteByte(LF); err != nil {
			return errors.Wrap(err, "failed to echo")
		}

		line := in.buf.String()
		in.buf.Reset()

		cmd, ok := commands[line]
		if !ok {
			return tx.Notify(NotifyUnknown)
		}
		if err := cmd(ctl); err != nil {
			return errors.Wrapf(err, "command %q failed", line)
		}
		return nil

	default:
		if err := tx.WriteByte(c); err != nil {
			return errors.Wrap(err, "failed to echo")
		}
		if !in.buf.Append(c) {
			return errors.Wrapf(ErrBufferFull, "dropped %q", c)
		}
		return nil
	}
}
