// Package config loads the board configuration file. The file describes the
// board's wiring that the daemon cannot probe: which connectors are
// populated, which I2C adapter reaches the expanders and receivers, and
// where the supporting assets live.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensics/cros-chameleon/ids"
)

// Config is the root of the board configuration.
type Config struct {
	// Ports lists the populated connector names ("DP1", "DP2", "HDMI",
	// "VGA").
	Ports []string `yaml:"ports"`

	// I2CBusNumber selects /dev/i2c-N for the expanders and receivers.
	I2CBusNumber int `yaml:"i2cBusNumber"`

	// DefaultEdidPath names the factory-default EDID asset.
	DefaultEdidPath string `yaml:"defaultEdidPath"`

	// PixelDumpTool overrides the pixel readback binary (default: on PATH).
	PixelDumpTool string `yaml:"pixelDumpTool,omitempty"`

	// MonitorPort is the TCP port of the monitoring server; zero disables
	// monitoring.
	MonitorPort int `yaml:"monitorPort,omitempty"`

	// RecordingDBPath is the diagnostics database path without extension;
	// empty disables recording.
	RecordingDBPath string `yaml:"recordingDbPath,omitempty"`
}

// Default is the configuration of the standard board.
func Default() Config {
	return Config{
		Ports:           []string{"DP1", "DP2", "HDMI", "VGA"},
		I2CBusNumber:    0,
		DefaultEdidPath: "/etc/chameleond/default_edid.bin",
	}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	return c, nil
}

// Validate rejects configurations the board cannot realize.
func (c Config) Validate() error {
	if len(c.Ports) == 0 {
		return fmt.Errorf("no ports configured")
	}

	seen := map[ids.PortID]bool{}
	for _, name := range c.Ports {
		port, ok := ids.ParsePort(name)
		if !ok {
			return fmt.Errorf("unknown port name %q", name)
		}
		if seen[port] {
			return fmt.Errorf("duplicate port %q", name)
		}
		seen[port] = true
	}

	if c.I2CBusNumber < 0 {
		return fmt.Errorf("negative I2C bus number %d", c.I2CBusNumber)
	}
	if c.DefaultEdidPath == "" {
		return fmt.Errorf("defaultEdidPath is required")
	}

	return nil
}

// PortIDs returns the configured ports as ids. Validate must have passed.
func (c Config) PortIDs() []ids.PortID {
	ports := make([]ids.PortID, 0, len(c.Ports))
	for _, name := range c.Ports {
		port, ok := ids.ParsePort(name)
		if !ok {
			panic(fmt.Sprintf("unvalidated port name %q", name))
		}
		ports = append(ports, port)
	}
	return ports
}
