package ledring

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/ledring/internal/sched"
	"libdb.so/ledring/ring"
)

// Config is the configuration for the light ring daemon.
type Config struct {
	// Driver selects the peripherals: "periph" for real hardware through
	// periph.io, or "sim" for simulated lights, accelerometer and button.
	Driver Driver `toml:"driver"`
	// Console is the serial console configuration.
	Console ConsoleConfig `toml:"console"`
	// Clock is the tick counter configuration.
	Clock ClockConfig `toml:"clock"`
	// Pins names the GPIO pins of the lights and the button.
	Pins PinsConfig `toml:"pins"`
	// Sensor is the accelerometer bus configuration.
	Sensor SensorConfig `toml:"sensor"`
	// Sim configures the simulated peripherals.
	Sim SimConfig `toml:"sim"`
}

// Driver is the kind of peripherals to use.
type Driver string

const (
	// PeriphDriver drives real pins and buses through periph.io.
	PeriphDriver Driver = "periph"
	// SimDriver uses simulated peripherals.
	SimDriver Driver = "sim"
)

// ConsoleConfig is the configuration of the serial console.
type ConsoleConfig struct {
	// Device is the path to the serial device, usually /dev/ttyACM0 or
	// /dev/ttyUSB0. "-" uses stdin and stdout.
	Device string `toml:"device"`
	// Baud is the baud rate of the serial line.
	Baud int `toml:"baud"`
}

// ClockConfig is the configuration of the tick counter.
type ClockConfig struct {
	// Hz is the tick rate of the counter.
	Hz uint64 `toml:"hz"`
	// Period is the animation and sensor step in ticks.
	Period uint64 `toml:"period"`
}

// PinsConfig names the GPIO pins.
type PinsConfig struct {
	// LEDs are the four light pins ordered east, south, west, north.
	LEDs []string `toml:"leds"`
	// Button is the push button input pin.
	Button string `toml:"button"`
}

// SensorConfig is the configuration of the accelerometer bus.
type SensorConfig struct {
	// Bus is the SPI port name. The first port is used if empty.
	Bus string `toml:"bus"`
	// Freq is the bus clock in Hz.
	Freq int64 `toml:"freq"`
}

// SimConfig configures the simulated peripherals.
type SimConfig struct {
	// X and Y are the simulated accelerometer reading.
	X int8 `toml:"x"`
	Y int8 `toml:"y"`
	// Drift turns the simulated tilt a quarter around the board every
	// Drift. Zero keeps the tilt fixed.
	Drift TOMLDuration `toml:"drift"`
}

// Baud rates accepted on the console.
const (
	MinBaud = 9600
	MaxBaud = 115200
)

// DefaultConfig returns the configuration of the reference board: 16 MHz
// ticks and a period of 8,000,000 ticks.
func DefaultConfig() *Config {
	return &Config{
		Driver: PeriphDriver,
		Console: ConsoleConfig{
			Device: "/dev/ttyACM0",
			Baud:   MaxBaud,
		},
		Clock: ClockConfig{
			Hz:     16_000_000,
			Period: 8_000_000,
		},
		Pins: PinsConfig{
			LEDs:   []string{"GPIO12", "GPIO13", "GPIO14", "GPIO15"},
			Button: "GPIO17",
		},
		Sensor: SensorConfig{
			Freq: 1_000_000,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case PeriphDriver, SimDriver:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}

	if c.Console.Device == "" {
		return errors.New("no console device configured")
	}
	if c.Console.Baud < MinBaud || c.Console.Baud > MaxBaud {
		return fmt.Errorf("console baud rate %d outside %d..%d", c.Console.Baud, MinBaud, MaxBaud)
	}

	if c.Clock.Hz == 0 {
		return errors.New("clock rate must be positive")
	}
	if c.Clock.Period == 0 {
		return errors.New("period must be positive")
	}

	if c.Driver == PeriphDriver {
		if len(c.Pins.LEDs) != ring.NumLEDs {
			return fmt.Errorf("%d LED pins configured, need %d", len(c.Pins.LEDs), ring.NumLEDs)
		}

		seen := make(map[string]bool, ring.NumLEDs+1)
		for i, name := range c.Pins.LEDs {
			if name == "" {
				return fmt.Errorf("LED pin %d is not configured", i)
			}
			if seen[name] {
				return fmt.Errorf("pin %s is used twice", name)
			}
			seen[name] = true
		}
		if c.Pins.Button == "" {
			return errors.New("no button pin configured")
		}
		if seen[c.Pins.Button] {
			return fmt.Errorf("pin %s is used twice", c.Pins.Button)
		}
		if c.Sensor.Freq <= 0 {
			return errors.New("sensor bus frequency must be positive")
		}
	}

	if c.Sim.Drift < 0 {
		return errors.New("simulated drift must not be negative")
	}

	return nil
}

// Period returns the step period in ticks.
func (c *Config) Period() sched.Ticks {
	return sched.Ticks(c.Clock.Period)
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LEDPins returns the light pin names as an array.
func (c *PinsConfig) LEDPins() [ring.NumLEDs]string {
	var pins [ring.NumLEDs]string
	copy(pins[:], c.LEDs)
	return pins
}

// applyDefaults fills in every unset field from DefaultConfig.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.Console.Device == "" {
		c.Console.Device = def.Console.Device
	}
	if c.Console.Baud == 0 {
		c.Console.Baud = def.Console.Baud
	}
	if c.Clock.Hz == 0 {
		c.Clock.Hz = def.Clock.Hz
	}
	if c.Clock.Period == 0 {
		c.Clock.Period = def.Clock.Period
	}
	if c.Pins.LEDs == nil {
		c.Pins.LEDs = def.Pins.LEDs
	}
	if c.Pins.Button == "" {
		c.Pins.Button = def.Pins.Button
	}
	if c.Sensor.Freq == 0 {
		c.Sensor.Freq = def.Sensor.Freq
	}
}

// ParseConfig parses a configuration from a reader. Fields missing from the
// file take their DefaultConfig values.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}
