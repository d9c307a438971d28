// Package config loads the podbeacon YAML configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	Adapter         string          `yaml:"adapter"`
	Scan            Scan            `yaml:"scan"`
	Logging         Logging         `yaml:"logging"`
	Metrics         Metrics         `yaml:"metrics"`
	BatteryProvider BatteryProvider `yaml:"battery_provider"`
	Tray            Tray            `yaml:"tray"`
	Decrypt         Decrypt         `yaml:"decrypt"`
}

// Scan configures advertisement scanning
type Scan struct {
	CompanyID uint16        `yaml:"company_id"`
	Window    time.Duration `yaml:"window"`
}

// Logging configures the global logger
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Metrics configures the Prometheus endpoint
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// BatteryProvider configures the BlueZ battery export
type BatteryProvider struct {
	Enabled bool `yaml:"enabled"`
}

// Tray configures the system tray indicator
type Tray struct {
	Enabled bool   `yaml:"enabled"`
	Icon    string `yaml:"icon"` // PNG path; empty uses the title only
}

// Decrypt holds the optional accessory encryption key, as 32 hex characters.
type Decrypt struct {
	Key string `yaml:"key"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Adapter: "hci0",
		Scan: Scan{
			CompanyID: 0x004C,
			Window:    5 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: Metrics{
			Listen: "127.0.0.1:9120",
		},
		BatteryProvider: BatteryProvider{Enabled: true},
		Tray:            Tray{Enabled: true},
	}
}

// Load reads the configuration file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if c.Adapter == "" || strings.Contains(c.Adapter, "/") {
		return fmt.Errorf("adapter: invalid name %q", c.Adapter)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Decrypt.Validate(); err != nil {
		return fmt.Errorf("decrypt config: %w", err)
	}
	return nil
}

// Validate checks the scan section
func (s Scan) Validate() error {
	if s.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", s.Window)
	}
	return nil
}

// Validate checks the logging section
func (l Logging) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}

// Validate checks the metrics section
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		return fmt.Errorf("listen address %q: %w", m.Listen, err)
	}
	return nil
}

// Validate checks that the key, if set, decodes to 16 bytes
func (d Decrypt) Validate() error {
	_, err := d.KeyBytes()
	return err
}

// KeyBytes decodes the key. It returns nil without error when no key is set.
func (d Decrypt) KeyBytes() ([]byte, error) {
	if d.Key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(d.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	if len(key) != 16 {
		return nil, fmt.Errorf("key must be 16 bytes (32 hex characters), got %d bytes", len(key))
	}
	return key, nil
}
