// Package hw adapts host peripherals to the interfaces of the light ring
// core: periph.io GPIO and SPI, a go.bug.st serial console and a tick counter
// backed by the monotonic clock.
package hw

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the periph.io host drivers. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = errors.Wrap(err, "failed to initialize host drivers")
		}
	})
	return initErr
}
