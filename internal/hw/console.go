package hw

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// StdioDevice is the console device name that selects stdin and stdout.
const StdioDevice = "-"

// OpenConsole opens the console serial port at the given baud rate with 8
// data bits, no parity and one stop bit.
func OpenConsole(device string, baud int) (io.ReadWriteCloser, error) {
	if device == StdioDevice {
		return stdio{}, nil
	}

	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to reset read timeout")
	}

	return port, nil
}

type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
func (stdio) Close() error                { return os.Stdin.Close() }
