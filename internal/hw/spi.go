package hw

import (
	"github.com/pkg/errors"
	"libdb.so/ledring/accel"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SensorBus is the accelerometer's SPI connection.
type SensorBus struct {
	spi.Conn
	port spi.PortCloser
}

var _ accel.Conn = (*SensorBus)(nil)

// OpenSensorBus opens the named SPI port (the first one if name is empty) in
// mode 3, clock idle high and capture on the second edge, 8 bits per word.
func OpenSensorBus(name string, hz int64) (*SensorBus, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %q", name)
	}

	conn, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to connect to SPI port")
	}

	return &SensorBus{Conn: conn, port: port}, nil
}

// Close closes the SPI port.
func (b *SensorBus) Close() error {
	return b.port.Close()
}
