package ledring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledring/internal/sched"
)

func TestParseConfig(t *testing.T) {
	const src = `
driver = "sim"

[console]
device = "-"
baud = 9600

[clock]
period = 4000000

[sim]
x = -12
y = 40
drift = "750ms"
`

	cfg, err := ParseConfig(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SimDriver, cfg.Driver)
	assert.Equal(t, "-", cfg.Console.Device)
	assert.Equal(t, 9600, cfg.Console.Baud)
	assert.Equal(t, uint64(16_000_000), cfg.Clock.Hz)
	assert.Equal(t, sched.Ticks(4_000_000), cfg.Period())
	assert.Equal(t, int8(-12), cfg.Sim.X)
	assert.Equal(t, int8(40), cfg.Sim.Y)
	assert.Equal(t, TOMLDuration(750*time.Millisecond), cfg.Sim.Drift)
	assert.Equal(t,
		[4]string{"GPIO12", "GPIO13", "GPIO14", "GPIO15"},
		cfg.Pins.LEDPins())
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[console\nbaud = 1"))
	assert.Error(t, err)

	_, err = ParseConfig(strings.NewReader("[sim]\ndrift = \"soon\""))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"sim ignores pins", func(c *Config) {
			c.Driver = SimDriver
			c.Pins.LEDs = nil
		}, true},
		{"unknown driver", func(c *Config) { c.Driver = "gpio" }, false},
		{"no device", func(c *Config) { c.Console.Device = "" }, false},
		{"slow baud", func(c *Config) { c.Console.Baud = 4800 }, false},
		{"fast baud", func(c *Config) { c.Console.Baud = 230400 }, false},
		{"zero clock", func(c *Config) { c.Clock.Hz = 0 }, false},
		{"zero period", func(c *Config) { c.Clock.Period = 0 }, false},
		{"three pins", func(c *Config) { c.Pins.LEDs = c.Pins.LEDs[:3] }, false},
		{"empty pin", func(c *Config) { c.Pins.LEDs[2] = "" }, false},
		{"repeated pin", func(c *Config) { c.Pins.LEDs[1] = c.Pins.LEDs[0] }, false},
		{"button on led", func(c *Config) { c.Pins.Button = c.Pins.LEDs[3] }, false},
		{"no button", func(c *Config) { c.Pins.Button = "" }, false},
		{"no bus clock", func(c *Config) { c.Sensor.Freq = 0 }, false},
		{"negative drift", func(c *Config) { c.Sim.Drift = -1 }, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(cfg)

			err := cfg.Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
