package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/sales.csv", cfg.SalesCSV)
	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, 2019, cfg.StartYear)
	assert.Equal(t, 2020, cfg.EndYear)
	assert.Equal(t, 1000, cfg.BatchSize)
}

func TestLoadConfig_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".salescube.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sales_csv: /srv/export/sales.csv\nstart_year: 2015\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/export/sales.csv", cfg.SalesCSV)
	assert.Equal(t, 2015, cfg.StartYear)
	assert.Equal(t, 2020, cfg.EndYear, "omitted fields keep defaults")
	assert.Equal(t, ";", cfg.Delimiter)
}

func TestLoadConfig_InvalidYAMLDegradesToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".salescube.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sales_csv: [unclosed"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err, "invalid config degrades, never fails startup")
	assert.Equal(t, "data/sales.csv", cfg.SalesCSV)
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 50\n"), 0o600))

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.BatchSize)
}
