package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical controller defaults file.
const DefaultConfigPath = "config/controller.defaults.json"

// maxFileSize guards against loading something that is clearly not a config.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// ControllerConfig is the on-disk controller configuration. Every field is
// optional; the Get* methods supply defaults for fields left unset, so
// partial configs are safe.
type ControllerConfig struct {
	// Network
	ListenAddress *string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
	RcvBuf        *int    `json:"rcv_buf,omitempty" yaml:"rcv_buf,omitempty"`

	// Discovery
	DiscoveryMaxAttempts  *int    `json:"discovery_max_attempts,omitempty" yaml:"discovery_max_attempts,omitempty"`
	DiscoveryPollInterval *string `json:"discovery_poll_interval,omitempty" yaml:"discovery_poll_interval,omitempty"` // "10ms"
	DiscoveryTimeout      *string `json:"discovery_timeout,omitempty" yaml:"discovery_timeout,omitempty"`             // "0s" disables
	DiscoveryBackoff      *string `json:"discovery_backoff,omitempty" yaml:"discovery_backoff,omitempty"`

	// Tick loop
	TickInterval             *string `json:"tick_interval,omitempty" yaml:"tick_interval,omitempty"`
	RediscoverAfter          *int    `json:"rediscover_after,omitempty" yaml:"rediscover_after,omitempty"`
	HardwareFailureThreshold *int    `json:"hardware_failure_threshold,omitempty" yaml:"hardware_failure_threshold,omitempty"`
	StatsInterval            *string `json:"stats_interval,omitempty" yaml:"stats_interval,omitempty"`

	// Signal processing
	FlexThreshold *int32 `json:"flex_threshold,omitempty" yaml:"flex_threshold,omitempty"`
	WindowSize    *int   `json:"window_size,omitempty" yaml:"window_size,omitempty"`

	// Sensor co-processor
	SerialPort    *string                `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	SerialOptions *serialmux.PortOptions `json:"serial_options,omitempty" yaml:"serial_options,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrInt32(v int32) *int32    { return &v }
func ptrString(v string) *string { return &v }

// EmptyControllerConfig returns a config with every field unset.
func EmptyControllerConfig() *ControllerConfig {
	return &ControllerConfig{}
}

// DefaultControllerConfig returns a config with every field populated with
// its default value.
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		ListenAddress:            ptrString(":8888"),
		RcvBuf:                   ptrInt(0),
		DiscoveryMaxAttempts:     ptrInt(100),
		DiscoveryPollInterval:    ptrString("10ms"),
		DiscoveryTimeout:         ptrString("0s"),
		DiscoveryBackoff:         ptrString("500ms"),
		TickInterval:             ptrString("15ms"),
		RediscoverAfter:          ptrInt(50),
		HardwareFailureThreshold: ptrInt(20),
		StatsInterval:            ptrString("1m"),
		FlexThreshold:            ptrInt32(1700),
		WindowSize:               ptrInt(101),
		SerialPort:               ptrString("/dev/ttyS0"),
		SerialOptions:            &serialmux.PortOptions{BaudRate: serialmux.DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
	}
}

// LoadControllerConfig loads a ControllerConfig from a .json, .yaml or .yml
// file and validates it.
func LoadControllerConfig(path string) (*ControllerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyControllerConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so it works from package test directories. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *ControllerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadControllerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the set values are usable.
func (c *ControllerConfig) Validate() error {
	durations := []struct {
		name  string
		value *string
		zero  bool // whether 0 is allowed
	}{
		{"discovery_poll_interval", c.DiscoveryPollInterval, false},
		{"discovery_timeout", c.DiscoveryTimeout, true},
		{"discovery_backoff", c.DiscoveryBackoff, true},
		{"tick_interval", c.TickInterval, false},
		{"stats_interval", c.StatsInterval, false},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		v, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if v < 0 || (v == 0 && !d.zero) {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.value)
		}
	}

	if c.DiscoveryMaxAttempts != nil && *c.DiscoveryMaxAttempts < 1 {
		return fmt.Errorf("discovery_max_attempts must be at least 1, got %d", *c.DiscoveryMaxAttempts)
	}
	// The coefficient tables are compiled in, so the window cannot differ
	// from their length.
	if c.WindowSize != nil && *c.WindowSize != filter.DefaultWindowSize {
		return fmt.Errorf("window_size must be %d to match the compiled filter tables, got %d", filter.DefaultWindowSize, *c.WindowSize)
	}
	if c.RediscoverAfter != nil && *c.RediscoverAfter < 0 {
		return fmt.Errorf("rediscover_after must be non-negative, got %d", *c.RediscoverAfter)
	}
	if c.HardwareFailureThreshold != nil && *c.HardwareFailureThreshold < 0 {
		return fmt.Errorf("hardware_failure_threshold must be non-negative, got %d", *c.HardwareFailureThreshold)
	}
	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcv_buf must be non-negative, got %d", *c.RcvBuf)
	}
	if c.FlexThreshold != nil && *c.FlexThreshold < 0 {
		return fmt.Errorf("flex_threshold must be non-negative, got %d", *c.FlexThreshold)
	}
	if c.SerialOptions != nil {
		if _, err := c.SerialOptions.Normalize(); err != nil {
			return fmt.Errorf("serial_options: %w", err)
		}
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetListenAddress returns the UDP address to bind.
func (c *ControllerConfig) GetListenAddress() string {
	if c.ListenAddress == nil || *c.ListenAddress == "" {
		return ":8888"
	}
	return *c.ListenAddress
}

// GetRcvBuf returns the socket receive buffer size; 0 leaves the OS default.
func (c *ControllerConfig) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return 0
	}
	return *c.RcvBuf
}

// GetDiscoveryMaxAttempts returns the per-run listen budget.
func (c *ControllerConfig) GetDiscoveryMaxAttempts() int {
	if c.DiscoveryMaxAttempts == nil {
		return 100
	}
	return *c.DiscoveryMaxAttempts
}

// GetDiscoveryPollInterval returns how long each listen attempt waits.
func (c *ControllerConfig) GetDiscoveryPollInterval() time.Duration {
	return durationOr(c.DiscoveryPollInterval, 10*time.Millisecond)
}

// GetDiscoveryTimeout returns the wall-clock cap per run, 0 for none.
func (c *ControllerConfig) GetDiscoveryTimeout() time.Duration {
	return durationOr(c.DiscoveryTimeout, 0)
}

// GetDiscoveryBackoff returns the pause between failed discovery runs.
func (c *ControllerConfig) GetDiscoveryBackoff() time.Duration {
	return durationOr(c.DiscoveryBackoff, 500*time.Millisecond)
}

// GetTickInterval returns the sensor/telemetry period.
func (c *ControllerConfig) GetTickInterval() time.Duration {
	return durationOr(c.TickInterval, 15*time.Millisecond)
}

// GetRediscoverAfter returns how many consecutive send failures trigger a new
// discovery run; 0 disables rediscovery.
func (c *ControllerConfig) GetRediscoverAfter() int {
	if c.RediscoverAfter == nil {
		return 50
	}
	return *c.RediscoverAfter
}

// GetHardwareFailureThreshold returns how many consecutive sensor failures
// are reported to the peer as a hardware failure; 0 disables the report.
func (c *ControllerConfig) GetHardwareFailureThreshold() int {
	if c.HardwareFailureThreshold == nil {
		return 20
	}
	return *c.HardwareFailureThreshold
}

// GetStatsInterval returns how often telemetry stats are logged.
func (c *ControllerConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, time.Minute)
}

// GetFlexThreshold returns the bent/straight boundary.
func (c *ControllerConfig) GetFlexThreshold() int32 {
	if c.FlexThreshold == nil {
		return 1700
	}
	return *c.FlexThreshold
}

// GetWindowSize returns the FIR window length.
func (c *ControllerConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 101
	}
	return *c.WindowSize
}

// GetSerialPort returns the co-processor device path.
func (c *ControllerConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyS0"
	}
	return *c.SerialPort
}

// GetSerialOptions returns the serial options with defaults applied.
func (c *ControllerConfig) GetSerialOptions() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.SerialOptions != nil {
		opts = *c.SerialOptions
	}
	if n, err := opts.Normalize(); err == nil {
		return n
	}
	n, _ := serialmux.PortOptions{}.Normalize()
	return n
}
