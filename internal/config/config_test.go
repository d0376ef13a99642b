package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()

	assert.Equal(t, PowerHighPerformance, cfg.Adapter.PowerPreference)
	assert.Equal(t, GridCover, cfg.Dispatch.GridPolicy)
	assert.Equal(t, uint32(64), cfg.Dispatch.FixedWorkgroups)
	assert.Equal(t, uint32(65535), cfg.Dispatch.MaxWorkgroups)
	assert.True(t, cfg.Dispatch.Synchronous)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Submit)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Map)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BORN_WGPU_POWER_PREFERENCE", "default")
	t.Setenv("BORN_WGPU_GRID_POLICY", "fixed")
	t.Setenv("BORN_WGPU_FIXED_WORKGROUPS", "128")
	t.Setenv("BORN_WGPU_SYNCHRONOUS", "false")
	t.Setenv("BORN_WGPU_SUBMIT_TIMEOUT", "5")
	t.Setenv("BORN_WGPU_MAP_TIMEOUT", "250ms")
	t.Setenv("BORN_WGPU_LOG_VERBOSITY", "2")

	cfg := LoadFromEnv()

	assert.Equal(t, PowerDefault, cfg.Adapter.PowerPreference)
	assert.Equal(t, GridFixed, cfg.Dispatch.GridPolicy)
	assert.Equal(t, uint32(128), cfg.Dispatch.FixedWorkgroups)
	assert.False(t, cfg.Dispatch.Synchronous)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Submit)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeouts.Map)
	assert.Equal(t, 2, cfg.Logging.Verbosity)
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("BORN_WGPU_MAX_WORKGROUPS", "lots")
	t.Setenv("BORN_WGPU_MAP_TIMEOUT", "soon")

	cfg := LoadFromEnv()

	assert.Equal(t, uint32(65535), cfg.Dispatch.MaxWorkgroups)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Map)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "born-wgpu.yaml")
	yaml := `
adapter:
  power_preference: default
dispatch:
  grid_policy: fixed
  max_workgroups: 1024
  synchronous: false
timeouts:
  submit: 2s
  map: 10
logging:
  verbosity: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, PowerDefault, cfg.Adapter.PowerPreference)
	assert.Equal(t, GridFixed, cfg.Dispatch.GridPolicy)
	assert.Equal(t, uint32(64), cfg.Dispatch.FixedWorkgroups, "unset keys keep defaults")
	assert.Equal(t, uint32(1024), cfg.Dispatch.MaxWorkgroups)
	assert.False(t, cfg.Dispatch.Synchronous)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Submit)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Map)
	assert.Equal(t, 3, cfg.Logging.Verbosity)
}

func TestLoadFromFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, LoadDefaults(), cfg)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("dispatch: [unclosed"), 0o600))
	_, err := LoadFromFile(bad)
	assert.Error(t, err)

	badDuration := filepath.Join(dir, "duration.yaml")
	require.NoError(t, os.WriteFile(badDuration, []byte("timeouts:\n  map: eventually\n"), 0o600))
	_, err = LoadFromFile(badDuration)
	assert.Error(t, err)
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  grid_policy: fixed\n  max_workgroups: 10\n"), 0o600))
	t.Setenv("BORN_WGPU_CONFIG", path)
	t.Setenv("BORN_WGPU_MAX_WORKGROUPS", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, GridFixed, cfg.Dispatch.GridPolicy)
	assert.Equal(t, uint32(20), cfg.Dispatch.MaxWorkgroups)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"power preference", func(c *Config) { c.Adapter.PowerPreference = "low" }},
		{"grid policy", func(c *Config) { c.Dispatch.GridPolicy = "auto" }},
		{"fixed workgroups", func(c *Config) { c.Dispatch.FixedWorkgroups = 0 }},
		{"max workgroups", func(c *Config) { c.Dispatch.MaxWorkgroups = 70000 }},
		{"submit timeout", func(c *Config) { c.Timeouts.Submit = 0 }},
		{"map timeout", func(c *Config) { c.Timeouts.Map = -time.Second }},
		{"verbosity", func(c *Config) { c.Logging.Verbosity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestString(t *testing.T) {
	s := LoadDefaults().String()
	assert.Contains(t, s, "Grid: cover")
	assert.Contains(t, s, "Sync: true")
}
