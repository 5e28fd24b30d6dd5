package disrnet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.NumNodes())
	assert.Equal(t, -1, cfg.bootstrapTimeout())
	assert.Equal(t, unlimitedTTL, cfg.requestTTL())
}

func TestConfig_ValidateReportsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MeshWidth = 1
	cfg.BufferDepth = 0
	cfg.Routing = "west-first"
	cfg.DefectiveLinkProb = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.ErrorContains(t, err, "at least 2x2")
	assert.ErrorContains(t, err, "buffer depth 0")
	assert.ErrorContains(t, err, "west-first")
	assert.ErrorContains(t, err, "link defect probability")
}

func TestConfig_BootstrapOutsideMesh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bootstrap = cfg.NumNodes()
	assert.ErrorContains(t, cfg.Validate(), "bootstrap node 16")

	cfg.Bootstrap = 3
	cfg.ResetCycles = cfg.SimCycles
	assert.ErrorContains(t, cfg.Validate(), "warm-up")
}

func TestConfig_SeedLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = maxSeed
	assert.NoError(t, cfg.Validate())

	cfg.Seed = maxSeed + 1
	assert.ErrorContains(t, cfg.Validate(), "seed 4294944437")
}

func TestReadConfig_KeepsDefaults(t *testing.T) {
	cfg, err := ReadConfig("inline", true, []byte("dimx: 6\nbuffer: 2\nttl: 3\nbootstraptimeout: 40\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MeshWidth)
	assert.Equal(t, 4, cfg.MeshHeight)
	assert.Equal(t, 2, cfg.BufferDepth)
	assert.Equal(t, 3, cfg.requestTTL())
	assert.Equal(t, 40, cfg.bootstrapTimeout())
	assert.True(t, cfg.DiSR)

	cfg, err = ReadConfig("inline", false, []byte(`{"dimy": 5, "disr": false, "rate": 0.2}`))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MeshHeight)
	assert.False(t, cfg.DiSR)
	assert.Equal(t, 0.2, cfg.PacketRate)
}

func TestReadConfig_Errors(t *testing.T) {
	_, err := ReadConfig("inline", true, []byte("dimx: [1"))
	assert.ErrorContains(t, err, "decoding configuration")

	_, err = ReadConfig("inline", true, []byte("dimx: 1\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestConfig_FileRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpName = "corner"
	cfg.MeshWidth = 8
	cfg.DefectiveLinkProb = 0.1
	cfg.Seed = 42

	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.WriteToFile(path))
		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		if diff := cmp.Diff(cfg, loaded); diff != "" {
			t.Errorf("%s round trip (-want +got):\n%s", name, diff)
		}
	}

	err := cfg.WriteToFile(filepath.Join(t.TempDir(), "cfg.txt"))
	assert.ErrorContains(t, err, "must end in")
}

func TestConfig_YAMLKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	require.NoError(t, DefaultConfig().WriteToFile(path))
	bytes, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{"dimx:", "dimy:", "buffer:", "cyclelinks:", "linkdefects:", "warmup:"} {
		assert.Contains(t, string(bytes), key)
	}
}
