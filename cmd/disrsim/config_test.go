package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestEffectiveConfig_Defaults(t *testing.T) {
	cfg, err := effectiveConfig(flagCommand(t).Flags())
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MeshWidth)
	assert.True(t, cfg.HaltOnViolation)
	assert.True(t, cfg.StopWhenStable)
}

func TestEffectiveConfig_Flags(t *testing.T) {
	cmd := flagCommand(t, "--dimx", "6", "--dimy", "3", "--ttl", "4", "--keep-going",
		"--run-to-end", "--disr=false", "--link-defects", "0.25", "--seed", "9")
	cfg, err := effectiveConfig(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MeshWidth)
	assert.Equal(t, 3, cfg.MeshHeight)
	assert.Equal(t, 4, cfg.TTL)
	assert.False(t, cfg.HaltOnViolation)
	assert.False(t, cfg.StopWhenStable)
	assert.False(t, cfg.DiSR)
	assert.Equal(t, 0.25, cfg.DefectiveLinkProb)
	assert.Equal(t, uint64(9), cfg.Seed)
}

func TestEffectiveConfig_Invalid(t *testing.T) {
	_, err := effectiveConfig(flagCommand(t, "--buffer", "0").Flags())
	assert.ErrorContains(t, err, "buffer depth")
}
