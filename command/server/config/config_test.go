package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
}

func TestReadConfigFile_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
		"data_dir": "/tmp/interop",
		"storage_engine": "leveldb",
		"network": {
			"chain_ids": [300, 301, 302],
			"blocks_per_batch": 4
		}
	}`)

	config, err := ReadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/interop", config.DataDir)
	assert.Equal(t, "leveldb", config.StorageEngine)
	assert.Equal(t, []uint64{300, 301, 302}, config.Network.ChainIDs)
	assert.Equal(t, 4, config.Network.BlocksPerBatch)
	// untouched values keep their defaults
	assert.Equal(t, uint64(505), config.Network.SettlementChainID)
	assert.Equal(t, "INFO", config.LogLevel)
}

func TestReadConfigFile_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
log_level: DEBUG
traffic:
  enabled: true
  interval: 100ms
network:
  finality_depth: 3
`)

	config, err := ReadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", config.LogLevel)
	assert.True(t, config.Traffic.Enabled)
	assert.Equal(t, "100ms", config.Traffic.Interval)
	assert.Equal(t, "500ms", config.Traffic.PollInterval)
	assert.Equal(t, uint64(3), config.Network.FinalityDepth)
	require.NoError(t, config.Validate())
}

func TestReadConfigFile_HCL(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.hcl", `
data_dir = "/var/lib/interop"
storage_engine = "memory"
log_level = "WARN"
`)

	config, err := ReadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/interop", config.DataDir)
	assert.Equal(t, "memory", config.StorageEngine)
	assert.Equal(t, "WARN", config.LogLevel)
}

func TestReadConfigFile_UnknownSuffix(t *testing.T) {
	t.Parallel()

	_, err := ReadConfigFile(writeConfig(t, "config.toml", ""))
	require.ErrorContains(t, err, "neither hcl, json, yaml nor yml")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.StorageEngine = "rocksdb"
	config.LogLevel = "LOUD"
	config.Network.ChainIDs = []uint64{270, 270, 505}
	config.Network.BlocksPerBatch = 0
	config.Network.SealInterval = "soon"

	err := config.Validate()
	require.Error(t, err)

	var merr *multierror.Error

	require.ErrorAs(t, err, &merr)
	assert.ErrorIs(t, err, errUnknownEngine)
	assert.ErrorIs(t, err, errUnknownLogLevel)
	assert.ErrorIs(t, err, errDuplicateChainID)
	assert.ErrorIs(t, err, errInvalidChainID)
	assert.ErrorIs(t, err, errInvalidBatchSize)
	assert.ErrorIs(t, err, errInvalidDuration)
}

func TestConfig_ValidateDataDir(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.DataDir = ""

	require.ErrorIs(t, config.Validate(), errNoDataDirOnDisk)

	config.StorageEngine = "memory"
	require.NoError(t, config.Validate())
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := ParseDuration("")
	require.NoError(t, err)
	require.Zero(t, d)

	d, err = ParseDuration("1m30s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("-1s")
	require.ErrorIs(t, err, errInvalidDuration)
}
