package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, "fiori", cfg.Profile)
	assert.Equal(t, 25, cfg.Load.StagnationLimit)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuex.yaml")
	data := []byte(`
timeouts:
  operation: 5s
load:
  target_override: 250
  stagnation_limit: 10
profile: generic
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeouts.Operation)
	assert.Equal(t, 250, cfg.Load.TargetOverride)
	assert.Equal(t, 10, cfg.Load.StagnationLimit)
	assert.Equal(t, "generic", cfg.Profile)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.Load.MaxIterations)
	assert.Equal(t, 500, cfg.Extract.MaxFieldLength)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("load:\n  max_iterations: -1\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsTinyFieldLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extract:\n  max_field_length: 2\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
