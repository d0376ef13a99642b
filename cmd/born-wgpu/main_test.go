package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCLI()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "version"), version)
	assert.Contains(t, run(t, "--version"), version)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("BORN_WGPU_CONFIG", "")
	t.Setenv("BORN_WGPU_GRID_POLICY", "fixed")
	t.Setenv("BORN_WGPU_FIXED_WORKGROUPS", "128")

	out := run(t, "config")
	assert.Contains(t, out, "dispatch.grid_policy")
	assert.Contains(t, out, "fixed")
	assert.Contains(t, out, "128")
}

func TestCapsCommand(t *testing.T) {
	out := run(t, "caps")
	assert.Contains(t, out, "affine")
	assert.Contains(t, out, "f32")
	assert.Contains(t, out, "gather")
}

func TestSmokeRejectsBadFlags(t *testing.T) {
	cmd := NewCLI()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"smoke", "--parallel", "0"})
	assert.Error(t, cmd.Execute())
}
