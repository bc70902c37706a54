// Package config holds the panel daemon's settings. Defaults come from
// command-line flags; an optional YAML file overrides any field it sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/panel-link/internal/control"
	"github.com/sweeney/panel-link/internal/flasher"
	"github.com/sweeney/panel-link/internal/gpio"
	"github.com/sweeney/panel-link/internal/logic"
)

const (
	RoleMaster   = "master"
	RoleFollower = "follower"

	OutputStrip   = "strip"
	OutputConsole = "console"
	OutputNone    = "none"
)

type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type GPIO struct {
	Enabled     bool   `yaml:"enabled"`
	Chip        string `yaml:"chip"`
	Switches    []int  `yaml:"switches"`
	MuxSelect   []int  `yaml:"mux_select"`
	MuxSignal   int    `yaml:"mux_signal"`
	MuxChannels int    `yaml:"mux_channels"`
}

type LEDs struct {
	Output   string        `yaml:"output"` // strip | console | none
	SPI      string        `yaml:"spi"`    // "" = first available
	Pixels   int           `yaml:"pixels"` // indicator pixels
	Pulse    string        `yaml:"pulse"`  // activity effect pattern
	FrameDur time.Duration `yaml:"frame"`  // render interval
}

type Director struct {
	BootupOrder string        `yaml:"bootup_order"` // panel letters, e.g. "ABCDEFG"
	BootupStep  time.Duration `yaml:"bootup_step"`
	Rotate      time.Duration `yaml:"rotate"`
}

type MQTT struct {
	Broker    string        `yaml:"broker"` // "" disables
	Prefix    string        `yaml:"prefix"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type Config struct {
	Role   string `yaml:"role"`
	Panel  string `yaml:"panel"`
	Layout string `yaml:"layout"`

	Poll            time.Duration `yaml:"poll"`
	SendInterval    time.Duration `yaml:"send_interval"`
	ActivityTimeout time.Duration `yaml:"activity_timeout"`
	Holdoff         time.Duration `yaml:"holdoff"`

	Serial   Serial   `yaml:"serial"`
	GPIO     GPIO     `yaml:"gpio"`
	LEDs     LEDs     `yaml:"leds"`
	Director Director `yaml:"director"`
	MQTT     MQTT     `yaml:"mqtt"`
	HTTP     string   `yaml:"http"` // "" disables
}

// Default returns the reference installation's settings for a follower.
func Default() Config {
	g := gpio.DefaultConfig()
	return Config{
		Role:            RoleFollower,
		Panel:           "A",
		Layout:          control.LayoutBootup.String(),
		Poll:            10 * time.Millisecond,
		SendInterval:    control.DefaultSendInterval,
		ActivityTimeout: control.DefaultActivityTimeout,
		Holdoff:         250 * time.Millisecond,
		Serial:          Serial{Port: "/dev/ttyAMA0", Baud: control.BaudRate},
		GPIO: GPIO{
			Enabled:     true,
			Chip:        g.Chip,
			Switches:    g.Switches,
			MuxSelect:   g.MuxSelect,
			MuxSignal:   g.MuxSignal,
			MuxChannels: g.MuxChannels,
		},
		LEDs: LEDs{
			Output:   OutputStrip,
			Pixels:   8,
			Pulse:    flasher.Sin.String(),
			FrameDur: 20 * time.Millisecond,
		},
		Director: Director{
			BootupOrder: "ABCDEFG",
			BootupStep:  2 * time.Second,
			Rotate:      5 * time.Second,
		},
		MQTT: MQTT{
			Broker:    "tcp://192.168.1.200:1883",
			Prefix:    "installation/panels",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: ":80",
	}
}

// Load reads a YAML file over base. Fields absent from the file keep the
// base value.
func Load(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	c := base
	if err := yaml.Unmarshal(b, &c); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// Save writes c as YAML.
func Save(path string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Role != RoleMaster && c.Role != RoleFollower {
		errs = append(errs, fmt.Errorf("role must be %s or %s, got %q", RoleMaster, RoleFollower, c.Role))
	}
	if _, err := logic.ParsePanel(c.Panel); err != nil {
		errs = append(errs, err)
	}
	if _, err := control.ParseLayout(c.Layout); err != nil {
		errs = append(errs, err)
	}
	if c.Poll <= 0 {
		errs = append(errs, fmt.Errorf("poll must be positive, got %v", c.Poll))
	}
	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial port is required"))
	}
	if c.Serial.Baud != control.BaudRate {
		errs = append(errs, fmt.Errorf("baud must be %d to match the ring, got %d", control.BaudRate, c.Serial.Baud))
	}
	switch c.LEDs.Output {
	case OutputStrip, OutputConsole, OutputNone:
	default:
		errs = append(errs, fmt.Errorf("unknown led output %q", c.LEDs.Output))
	}
	if c.LEDs.Pixels < 0 {
		errs = append(errs, fmt.Errorf("pixels must not be negative, got %d", c.LEDs.Pixels))
	}
	if _, err := flasher.ParsePattern(c.LEDs.Pulse); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BootupOrder(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsMaster reports whether this panel originates frames.
func (c Config) IsMaster() bool { return c.Role == RoleMaster }

// PanelID returns the parsed panel letter. Call Validate first.
func (c Config) PanelID() logic.Panel {
	p, _ := logic.ParsePanel(c.Panel)
	return p
}

// FrameLayout returns the parsed frame layout. Call Validate first.
func (c Config) FrameLayout() control.Layout {
	l, _ := control.ParseLayout(c.Layout)
	return l
}

// PulsePattern returns the parsed activity effect. Call Validate first.
func (c Config) PulsePattern() flasher.Pattern {
	p, _ := flasher.ParsePattern(c.LEDs.Pulse)
	return p
}

// BootupOrder returns the panels in the order the master powers them up.
func (c Config) BootupOrder() ([]logic.Panel, error) {
	var order []logic.Panel
	seen := make(map[logic.Panel]bool)
	for _, r := range c.Director.BootupOrder {
		p, err := logic.ParsePanel(string(r))
		if err != nil {
			return nil, fmt.Errorf("bootup order: %w", err)
		}
		if seen[p] {
			return nil, fmt.Errorf("bootup order: panel %s listed twice", p)
		}
		seen[p] = true
		order = append(order, p)
	}
	return order, nil
}

// GPIOConfig returns the reader wiring.
func (c Config) GPIOConfig() gpio.Config {
	return gpio.Config{
		Chip:        c.GPIO.Chip,
		Switches:    c.GPIO.Switches,
		MuxSelect:   c.GPIO.MuxSelect,
		MuxSignal:   c.GPIO.MuxSignal,
		MuxChannels: c.GPIO.MuxChannels,
	}
}
