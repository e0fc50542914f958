package server

import (
	"net"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/command/server/config"
	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/server"
)

const (
	configFlag            = "config"
	dataDirFlag           = "data-dir"
	storageEngineFlag     = "storage"
	prometheusAddressFlag = "prometheus"
	corsOriginFlag        = "access-control-allow-origins"
	batchLimitFlag        = "json-rpc-batch-request-limit"
	chainIDsFlag          = "chain-ids"
	settlementChainFlag   = "settlement-chain-id"
	finalityDepthFlag     = "finality-depth"
	blocksPerBatchFlag    = "blocks-per-batch"
	trafficFlag           = "traffic"
	logFileLocationFlag   = "log-to"
	jsonLogFormatFlag     = "json-log-format"
)

var (
	params = &serverParams{
		rawConfig: config.DefaultConfig(),
	}
)

type serverParams struct {
	rawConfig  *config.Config
	configPath string
	chainIDs   []uint

	jsonRPCAddress    *net.TCPAddr
	prometheusAddress *net.TCPAddr

	network *devnet.Config
	traffic *server.Traffic
}

func (p *serverParams) initConfigFromFile() error {
	var parseErr error

	if p.rawConfig, parseErr = config.ReadConfigFile(p.configPath); parseErr != nil {
		return parseErr
	}

	return nil
}

func (p *serverParams) setChainIDs() {
	p.rawConfig.Network.ChainIDs = make([]uint64, len(p.chainIDs))

	for i, chainID := range p.chainIDs {
		p.rawConfig.Network.ChainIDs[i] = uint64(chainID)
	}
}

func (p *serverParams) isPrometheusAddressSet() bool {
	return p.rawConfig.Telemetry != nil && p.rawConfig.Telemetry.PrometheusAddr != ""
}

func (p *serverParams) initAddresses() error {
	var parseErr error

	if p.jsonRPCAddress, parseErr = helper.ResolveAddr(p.rawConfig.JSONRPCAddr); parseErr != nil {
		return parseErr
	}

	if !p.isPrometheusAddressSet() {
		return nil
	}

	if p.prometheusAddress, parseErr = helper.ResolveAddr(p.rawConfig.Telemetry.PrometheusAddr); parseErr != nil {
		return parseErr
	}

	return nil
}

func (p *serverParams) initNetwork() error {
	raw := p.rawConfig.Network

	blockInterval, err := config.ParseDuration(raw.BlockInterval)
	if err != nil {
		return err
	}

	sealInterval, err := config.ParseDuration(raw.SealInterval)
	if err != nil {
		return err
	}

	syncInterval, err := config.ParseDuration(raw.SyncInterval)
	if err != nil {
		return err
	}

	p.network = &devnet.Config{
		SettlementChainID: raw.SettlementChainID,
		ChainIDs:          raw.ChainIDs,
		FinalityDepth:     raw.FinalityDepth,
		BlockInterval:     blockInterval,
		BlocksPerBatch:    raw.BlocksPerBatch,
		SealInterval:      sealInterval,
		SyncInterval:      syncInterval,
		CacheSize:         raw.CacheSize,
	}

	return nil
}

func (p *serverParams) initTraffic() error {
	raw := p.rawConfig.Traffic
	if raw == nil || !raw.Enabled {
		return nil
	}

	interval, err := config.ParseDuration(raw.Interval)
	if err != nil {
		return err
	}

	pollInterval, err := config.ParseDuration(raw.PollInterval)
	if err != nil {
		return err
	}

	pollTimeout, err := config.ParseDuration(raw.PollTimeout)
	if err != nil {
		return err
	}

	p.traffic = &server.Traffic{
		Interval: interval,
		Policy: poll.Policy{
			Interval:    pollInterval,
			Timeout:     pollTimeout,
			MaxAttempts: raw.MaxAttempts,
		},
	}

	return nil
}

func (p *serverParams) initRawParams() error {
	if err := p.rawConfig.Validate(); err != nil {
		return err
	}

	if err := p.initAddresses(); err != nil {
		return err
	}

	if err := p.initNetwork(); err != nil {
		return err
	}

	return p.initTraffic()
}

func (p *serverParams) generateConfig() *server.Config {
	return &server.Config{
		Network: p.network,
		JSONRPC: &server.JSONRPC{
			JSONRPCAddr:              p.jsonRPCAddress,
			AccessControlAllowOrigin: p.rawConfig.CorsAllowedOrigins,
			BatchLengthLimit:         p.rawConfig.JSONRPCBatchRequestLimit,
		},
		Telemetry: &server.Telemetry{
			PrometheusAddr: p.prometheusAddress,
		},
		DataDir:       p.rawConfig.DataDir,
		StorageEngine: p.rawConfig.StorageEngine,
		LogLevel:      hclog.LevelFromString(p.rawConfig.LogLevel),
		JSONLogFormat: p.rawConfig.JSONLogFormat,
		LogFilePath:   p.rawConfig.LogFilePath,
		Traffic:       p.traffic,
	}
}
