package console

// Ring is the part of the light ring that commands may change.
type Ring interface {
	Reverse()
	Disable()
	EnableCycle()
	EnableAccelerometer()
	AllOn()
	AllOff()
}

// Controller gives commands access to the shared light ring and lets them
// re-arm the periodic tasks.
type Controller interface {
	// UpdateRing runs f with exclusive access to the ring.
	UpdateRing(f func(Ring))
	// StartCycle re-arms the animation task. It is a no-op if the task is
	// already armed.
	StartCycle() error
	// StartAccelerometer re-arms the sensor task. It is a no-op if the task
	// is already armed.
	StartAccelerometer() error
}

type command func(Controller) error

var commands = map[string]command{
	"flip": func(c Controller) error {
		c.UpdateRing(Ring.Reverse)
		return nil
	},
	"stop": func(c Controller) error {
		c.UpdateRing(Ring.Disable)
		return nil
	},
	"cycle": func(c Controller) error {
		c.UpdateRing(Ring.EnableCycle)
		return c.StartCycle()
	},
	"accel": func(c Controller) error {
		c.UpdateRing(Ring.EnableAccelerometer)
		return c.StartAccelerometer()
	},
	"off": func(c Controller) error {
		c.UpdateRing(func(r Ring) {
			r.Disable()
			r.AllOff()
		})
		return nil
	},
	"on": func(c Controller) error {
		c.UpdateRing(func(r Ring) {
			r.Disable()
			r.AllOn()
		})
		return nil
	},
}

// Commands returns the names of the recognized commands.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return names
}

// IsCommand reports whether line is a recognized command.
func IsCommand(line string) bool {
	_, ok := commands[line]
	return ok
}
