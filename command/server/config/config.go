package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"

	"github.com/0xPolygon/interop-edge/server"
)

// Config defines the server configuration params
type Config struct {
	DataDir                  string     `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
	StorageEngine            string     `json:"storage_engine" yaml:"storage_engine" hcl:"storage_engine"`
	JSONRPCAddr              string     `json:"jsonrpc_addr" yaml:"jsonrpc_addr" hcl:"jsonrpc_addr"`
	JSONRPCBatchRequestLimit uint64     `json:"json_rpc_batch_request_limit" yaml:"json_rpc_batch_request_limit" hcl:"json_rpc_batch_request_limit"` //nolint:lll
	CorsAllowedOrigins       []string   `json:"cors_allowed_origins" yaml:"cors_allowed_origins" hcl:"cors_allowed_origins"`
	Telemetry                *Telemetry `json:"telemetry" yaml:"telemetry" hcl:"telemetry"`
	Network                  *Network   `json:"network" yaml:"network" hcl:"network"`
	Traffic                  *Traffic   `json:"traffic" yaml:"traffic" hcl:"traffic"`
	LogLevel                 string     `json:"log_level" yaml:"log_level" hcl:"log_level"`
	LogFilePath              string     `json:"log_to" yaml:"log_to" hcl:"log_to"`
	JSONLogFormat            bool       `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`
}

// Telemetry holds the config details for metric services.
type Telemetry struct {
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr" hcl:"prometheus_addr"`
}

// Network defines the layout of the settlement layer and its chains.
// Intervals are duration strings such as "500ms" or "2s".
type Network struct {
	SettlementChainID uint64   `json:"settlement_chain_id" yaml:"settlement_chain_id" hcl:"settlement_chain_id"`
	ChainIDs          []uint64 `json:"chain_ids" yaml:"chain_ids" hcl:"chain_ids"`
	FinalityDepth     uint64   `json:"finality_depth" yaml:"finality_depth" hcl:"finality_depth"`
	BlockInterval     string   `json:"block_interval" yaml:"block_interval" hcl:"block_interval"`
	BlocksPerBatch    int      `json:"blocks_per_batch" yaml:"blocks_per_batch" hcl:"blocks_per_batch"`
	SealInterval      string   `json:"seal_interval" yaml:"seal_interval" hcl:"seal_interval"`
	SyncInterval      string   `json:"sync_interval" yaml:"sync_interval" hcl:"sync_interval"`
	CacheSize         int      `json:"cache_size" yaml:"cache_size" hcl:"cache_size"`
}

// Traffic defines the generator of bridging operations
type Traffic struct {
	Enabled      bool   `json:"enabled" yaml:"enabled" hcl:"enabled"`
	Interval     string `json:"interval" yaml:"interval" hcl:"interval"`
	PollInterval string `json:"poll_interval" yaml:"poll_interval" hcl:"poll_interval"`
	PollTimeout  string `json:"poll_timeout" yaml:"poll_timeout" hcl:"poll_timeout"`
	MaxAttempts  uint64 `json:"max_attempts" yaml:"max_attempts" hcl:"max_attempts"`
}

const (
	// DefaultJSONRPCBatchRequestLimit maximum length allowed for json_rpc batch requests
	DefaultJSONRPCBatchRequestLimit uint64 = 20

	// DefaultDataDir is where the storages are kept when no data dir is given
	DefaultDataDir = "./interop-data"
)

var (
	errNoChains          = errors.New("at least one chain is required")
	errInvalidChainID    = errors.New("invalid chain id")
	errDuplicateChainID  = errors.New("duplicate chain id")
	errInvalidBatchSize  = errors.New("blocks per batch must be positive")
	errUnknownEngine     = errors.New("unknown storage engine")
	errUnknownLogLevel   = errors.New("unknown log level")
	errInvalidDuration   = errors.New("invalid duration")
	errNoDataDirOnDisk   = errors.New("data dir is required for on disk storage engines")
	errNegativeCacheSize = errors.New("cache size must not be negative")
)

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:                  DefaultDataDir,
		StorageEngine:            server.StorageBoltDB,
		JSONRPCAddr:              fmt.Sprintf("127.0.0.1:%d", server.DefaultJSONRPCPort),
		JSONRPCBatchRequestLimit: DefaultJSONRPCBatchRequestLimit,
		CorsAllowedOrigins:       []string{"*"},
		Telemetry:                &Telemetry{},
		Network: &Network{
			SettlementChainID: 505,
			ChainIDs:          []uint64{270, 271},
			FinalityDepth:     1,
			BlockInterval:     "1s",
			BlocksPerBatch:    2,
			SealInterval:      "2s",
			SyncInterval:      "1s",
			CacheSize:         128,
		},
		Traffic: &Traffic{
			Enabled:      false,
			Interval:     "3s",
			PollInterval: "500ms",
			PollTimeout:  "2m",
		},
		LogLevel: "INFO",
	}
}

// Validate returns every problem of the configuration at once
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.StorageEngine {
	case server.StorageMemory:
	case server.StorageBoltDB, server.StorageLevelDB:
		if c.DataDir == "" {
			result = multierror.Append(result, errNoDataDirOnDisk)
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnknownEngine, c.StorageEngine))
	}

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnknownLogLevel, c.LogLevel))
	}

	if c.Network != nil {
		result = multierror.Append(result, c.Network.validate())
	}

	if c.Traffic != nil && c.Traffic.Enabled {
		for _, d := range []string{c.Traffic.Interval, c.Traffic.PollInterval, c.Traffic.PollTimeout} {
			if _, err := ParseDuration(d); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	return result.ErrorOrNil()
}

func (n *Network) validate() error {
	var result *multierror.Error

	if len(n.ChainIDs) == 0 {
		result = multierror.Append(result, errNoChains)
	}

	if n.SettlementChainID == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: settlement chain id 0", errInvalidChainID))
	}

	seen := make(map[uint64]struct{}, len(n.ChainIDs))

	for _, chainID := range n.ChainIDs {
		if chainID == 0 || chainID == n.SettlementChainID {
			result = multierror.Append(result, fmt.Errorf("%w: %d", errInvalidChainID, chainID))
		}

		if _, ok := seen[chainID]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %d", errDuplicateChainID, chainID))
		}

		seen[chainID] = struct{}{}
	}

	if n.BlocksPerBatch <= 0 {
		result = multierror.Append(result, errInvalidBatchSize)
	}

	if n.CacheSize < 0 {
		result = multierror.Append(result, errNegativeCacheSize)
	}

	for _, d := range []string{n.BlockInterval, n.SealInterval, n.SyncInterval} {
		if _, err := ParseDuration(d); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// ParseDuration parses a duration string, an empty string being zero
func ParseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, raw)
	}

	return d, nil
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()

	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	return config, nil
}
