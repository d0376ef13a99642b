// Package config holds runtime settings for the WebGPU compute backend.
//
// Settings are resolved in three layers, later layers winning:
//
//  1. built-in defaults (LoadDefaults)
//  2. an optional YAML file (LoadFromFile, path from BORN_WGPU_CONFIG in Load)
//  3. BORN_WGPU_* environment variables (ApplyEnvVars)
//
// Example YAML:
//
//	adapter:
//	  power_preference: high-performance
//	dispatch:
//	  grid_policy: cover
//	  max_workgroups: 65535
//	  synchronous: true
//	timeouts:
//	  submit: 30s
//	  map: 30s
//	logging:
//	  verbosity: 1
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Power preferences accepted by AdapterConfig.PowerPreference.
const (
	PowerHighPerformance = "high-performance"
	PowerDefault         = "default"
)

// Grid policies accepted by DispatchConfig.GridPolicy.
const (
	// GridCover dispatches ceil(work/64) workgroups, capped at MaxWorkgroups.
	GridCover = "cover"
	// GridFixed always dispatches FixedWorkgroups workgroups.
	GridFixed = "fixed"
)

// Config is the full backend configuration.
type Config struct {
	Adapter  AdapterConfig
	Dispatch DispatchConfig
	Timeouts TimeoutConfig
	Logging  LoggingConfig
}

// AdapterConfig controls adapter selection.
type AdapterConfig struct {
	PowerPreference string
}

// DispatchConfig controls how kernels are launched.
type DispatchConfig struct {
	GridPolicy      string
	FixedWorkgroups uint32
	MaxWorkgroups   uint32
	// Synchronous makes every dispatch wait for its submission to retire.
	Synchronous bool
}

// TimeoutConfig bounds the two device waits.
type TimeoutConfig struct {
	Submit time.Duration
	Map    time.Duration
}

// LoggingConfig sets the klog verbosity used by the CLI.
type LoggingConfig struct {
	Verbosity int
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	return &Config{
		Adapter: AdapterConfig{
			PowerPreference: PowerHighPerformance,
		},
		Dispatch: DispatchConfig{
			GridPolicy:      GridCover,
			FixedWorkgroups: 64,
			MaxWorkgroups:   65535,
			Synchronous:     true,
		},
		Timeouts: TimeoutConfig{
			Submit: 30 * time.Second,
			Map:    30 * time.Second,
		},
	}
}

// LoadFromEnv returns defaults overlaid with environment variables.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	ApplyEnvVars(cfg)
	return cfg
}

// Load resolves defaults, the file named by BORN_WGPU_CONFIG (if set) and
// environment variables, then validates the result.
func Load() (*Config, error) {
	cfg := LoadDefaults()
	if path := os.Getenv("BORN_WGPU_CONFIG"); path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	ApplyEnvVars(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvVars overlays BORN_WGPU_* variables onto cfg.
func ApplyEnvVars(cfg *Config) {
	cfg.Adapter.PowerPreference = getEnv("BORN_WGPU_POWER_PREFERENCE", cfg.Adapter.PowerPreference)
	cfg.Dispatch.GridPolicy = getEnv("BORN_WGPU_GRID_POLICY", cfg.Dispatch.GridPolicy)
	cfg.Dispatch.FixedWorkgroups = getEnvUint32("BORN_WGPU_FIXED_WORKGROUPS", cfg.Dispatch.FixedWorkgroups)
	cfg.Dispatch.MaxWorkgroups = getEnvUint32("BORN_WGPU_MAX_WORKGROUPS", cfg.Dispatch.MaxWorkgroups)
	cfg.Dispatch.Synchronous = getEnvBool("BORN_WGPU_SYNCHRONOUS", cfg.Dispatch.Synchronous)
	cfg.Timeouts.Submit = getEnvDuration("BORN_WGPU_SUBMIT_TIMEOUT", cfg.Timeouts.Submit)
	cfg.Timeouts.Map = getEnvDuration("BORN_WGPU_MAP_TIMEOUT", cfg.Timeouts.Map)
	cfg.Logging.Verbosity = getEnvInt("BORN_WGPU_LOG_VERBOSITY", cfg.Logging.Verbosity)
}

// YAMLConfig mirrors the configuration file structure. Durations are strings
// so both "30s" and plain seconds are accepted.
type YAMLConfig struct {
	Adapter struct {
		PowerPreference string `yaml:"power_preference"`
	} `yaml:"adapter"`
	Dispatch struct {
		GridPolicy      string `yaml:"grid_policy"`
		FixedWorkgroups uint32 `yaml:"fixed_workgroups"`
		MaxWorkgroups   uint32 `yaml:"max_workgroups"`
		Synchronous     *bool  `yaml:"synchronous"`
	} `yaml:"dispatch"`
	Timeouts struct {
		Submit string `yaml:"submit"`
		Map    string `yaml:"map"`
	} `yaml:"timeouts"`
	Logging struct {
		Verbosity *int `yaml:"verbosity"`
	} `yaml:"logging"`
}

// LoadFromFile overlays a YAML file onto the defaults. A missing file yields
// the defaults unchanged.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := LoadDefaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Adapter.PowerPreference != "" {
		cfg.Adapter.PowerPreference = yamlCfg.Adapter.PowerPreference
	}
	if yamlCfg.Dispatch.GridPolicy != "" {
		cfg.Dispatch.GridPolicy = yamlCfg.Dispatch.GridPolicy
	}
	if yamlCfg.Dispatch.FixedWorkgroups > 0 {
		cfg.Dispatch.FixedWorkgroups = yamlCfg.Dispatch.FixedWorkgroups
	}
	if yamlCfg.Dispatch.MaxWorkgroups > 0 {
		cfg.Dispatch.MaxWorkgroups = yamlCfg.Dispatch.MaxWorkgroups
	}
	if yamlCfg.Dispatch.Synchronous != nil {
		cfg.Dispatch.Synchronous = *yamlCfg.Dispatch.Synchronous
	}
	if yamlCfg.Timeouts.Submit != "" {
		d, err := parseDuration(yamlCfg.Timeouts.Submit)
		if err != nil {
			return nil, fmt.Errorf("invalid timeouts.submit: %w", err)
		}
		cfg.Timeouts.Submit = d
	}
	if yamlCfg.Timeouts.Map != "" {
		d, err := parseDuration(yamlCfg.Timeouts.Map)
		if err != nil {
			return nil, fmt.Errorf("invalid timeouts.map: %w", err)
		}
		cfg.Timeouts.Map = d
	}
	if yamlCfg.Logging.Verbosity != nil {
		cfg.Logging.Verbosity = *yamlCfg.Logging.Verbosity
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Adapter.PowerPreference {
	case PowerHighPerformance, PowerDefault:
	default:
		return fmt.Errorf("invalid power preference %q (want %q or %q)",
			c.Adapter.PowerPreference, PowerHighPerformance, PowerDefault)
	}
	switch c.Dispatch.GridPolicy {
	case GridCover, GridFixed:
	default:
		return fmt.Errorf("invalid grid policy %q (want %q or %q)", c.Dispatch.GridPolicy, GridCover, GridFixed)
	}
	if c.Dispatch.FixedWorkgroups == 0 {
		return fmt.Errorf("fixed workgroups must be positive")
	}
	if c.Dispatch.MaxWorkgroups == 0 || c.Dispatch.MaxWorkgroups > 65535 {
		return fmt.Errorf("invalid max workgroups: %d (must be 1..65535)", c.Dispatch.MaxWorkgroups)
	}
	if c.Timeouts.Submit <= 0 {
		return fmt.Errorf("invalid submit timeout: %s", c.Timeouts.Submit)
	}
	if c.Timeouts.Map <= 0 {
		return fmt.Errorf("invalid map timeout: %s", c.Timeouts.Map)
	}
	if c.Logging.Verbosity < 0 {
		return fmt.Errorf("invalid log verbosity: %d", c.Logging.Verbosity)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Power: %s, Grid: %s(fixed=%d, max=%d), Sync: %v, Timeouts: submit=%s map=%s, V: %d}",
		c.Adapter.PowerPreference,
		c.Dispatch.GridPolicy, c.Dispatch.FixedWorkgroups, c.Dispatch.MaxWorkgroups,
		c.Dispatch.Synchronous,
		c.Timeouts.Submit, c.Timeouts.Map,
		c.Logging.Verbosity,
	)
}

func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as duration", s)
	}
	return time.Duration(secs) * time.Second, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(u)
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := parseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
