package sim

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"libdb.so/ledring/internal/hw"
)

// SignalButton is a button pressed by sending SIGUSR1 to the process.
type SignalButton struct {
	hw.EdgeLine
}

// NewSignalButton creates a signal-driven button.
func NewSignalButton() *SignalButton {
	return &SignalButton{}
}

// Watch calls pressed for every SIGUSR1 until ctx is canceled.
func (b *SignalButton) Watch(ctx context.Context, pressed func()) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigs:
			b.Trigger(pressed)
		}
	}
}
