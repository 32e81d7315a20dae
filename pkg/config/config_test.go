package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().BindAddr, cfg.BindAddr)
}

func TestLoadParsesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bindAddr: 0.0.0.0:9000\nlogJSON: true\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.BindAddr)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("BUS_DATA_DIR", "/env/data")
	t.Setenv("BUS_LOG", "debug")

	path := filepath.Join(t.TempDir(), "busline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: /file/data\nlogLevel: warn\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}
