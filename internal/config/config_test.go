package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".shrimp", filepath.Base(cfg.DataDir))
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, 50, cfg.ArchiveScanLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Complexity.DescriptionMedium)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PageSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataDir: /var/lib/shrimp
pageSize: 10
logLevel: debug
complexity:
  descriptionMedium: 100
  descriptionHigh: 200
  descriptionVeryHigh: 300
  dependenciesMedium: 1
  dependenciesHigh: 2
  dependenciesVeryHigh: 3
  notesMedium: 10
  notesHigh: 20
  notesVeryHigh: 30
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shrimp", cfg.DataDir)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.ArchiveScanLimit, "unset values keep their defaults")
	assert.Equal(t, 100, cfg.Complexity.DescriptionMedium)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pageSize: [not an int"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SHRIMP_DATA_DIR", "/tmp/override")
	t.Setenv("SHRIMP_PAGE_SIZE", "20")
	t.Setenv("SHRIMP_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_RejectsBadNumericEnv(t *testing.T) {
	t.Setenv("SHRIMP_PAGE_SIZE", "zero")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("SHRIMP_PAGE_SIZE", "-3")
	_, err = Load("")
	require.Error(t, err)
}
