// Package config loads the optional YAML configuration file for the
// rotary-sensor daemon. Command-line flags take precedence over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the on-disk configuration structure.
// Zero values mean "not set" and leave the flag default in place.
type Config struct {
	Chip      string `yaml:"chip"`
	ClockPin  int    `yaml:"clock_pin"`
	DataPin   int    `yaml:"data_pin"`
	SwitchPin int    `yaml:"switch_pin"`

	// DebounceMs is the switch settle delay in milliseconds.
	DebounceMs int `yaml:"debounce_ms"`

	Broker      string `yaml:"broker"`
	HTTPAddr    string `yaml:"http_addr"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
}

// Debounce returns the settle delay as a duration, or 0 if unset.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval as a duration, or 0 if unset.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	pins := map[string]int{
		"clock_pin":  c.ClockPin,
		"data_pin":   c.DataPin,
		"switch_pin": c.SwitchPin,
	}
	for name, pin := range pins {
		if pin < 0 {
			return fmt.Errorf("%s: negative pin %d", name, pin)
		}
	}

	// Configured pins must not collide.
	seen := make(map[int]string)
	for name, pin := range pins {
		if pin == 0 {
			continue
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("%s and %s both use pin %d", other, name, pin)
		}
		seen[pin] = name
	}

	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms: negative value %d", c.DebounceMs)
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms: negative value %d", c.HeartbeatMs)
	}
	return nil
}
