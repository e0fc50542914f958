package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/command/server/config"
	"github.com/0xPolygon/interop-edge/server"
)

func GetCommand() *cobra.Command {
	serverCmd := &cobra.Command{
		Use:     "server",
		Short:   "Starts the interop node: the L1 hub, the settlement layer and its L2 chains",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(serverCmd)

	return serverCmd
}

func setFlags(cmd *cobra.Command) {
	defaultConfig := config.DefaultConfig()

	cmd.Flags().StringVar(
		&params.configPath,
		configFlag,
		"",
		"the path to the CLI config. Supports .json, .hcl and .yaml",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.LogLevel,
		command.LogLevelFlag,
		defaultConfig.LogLevel,
		"the log level for console output",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.DataDir,
		dataDirFlag,
		defaultConfig.DataDir,
		"the data directory used for storing the chain data",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.StorageEngine,
		storageEngineFlag,
		defaultConfig.StorageEngine,
		fmt.Sprintf("the storage engine, one of %s, %s or %s",
			server.StorageBoltDB, server.StorageLevelDB, server.StorageMemory),
	)

	cmd.Flags().StringVar(
		&params.rawConfig.JSONRPCAddr,
		command.JSONRPCFlag,
		defaultConfig.JSONRPCAddr,
		"the address and port for the JSON-RPC service (address:port)",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Telemetry.PrometheusAddr,
		prometheusAddressFlag,
		"",
		"the address and port for the prometheus instrumentation service (address:port). "+
			"If omitted, metrics are served by the JSON-RPC service",
	)

	cmd.Flags().StringArrayVar(
		&params.rawConfig.CorsAllowedOrigins,
		corsOriginFlag,
		defaultConfig.CorsAllowedOrigins,
		"the CORS header indicating whether any JSON-RPC response can be shared with the specified origin",
	)

	cmd.Flags().Uint64Var(
		&params.rawConfig.JSONRPCBatchRequestLimit,
		batchLimitFlag,
		defaultConfig.JSONRPCBatchRequestLimit,
		"max length to be considered when handling json-rpc batch requests, value of 0 disables it",
	)

	cmd.Flags().UintSliceVar(
		&params.chainIDs,
		chainIDsFlag,
		[]uint{270, 271},
		"the chain ids of the L2 chains settling on the settlement layer",
	)

	cmd.Flags().Uint64Var(
		&params.rawConfig.Network.SettlementChainID,
		settlementChainFlag,
		defaultConfig.Network.SettlementChainID,
		"the chain id of the settlement layer",
	)

	cmd.Flags().Uint64Var(
		&params.rawConfig.Network.FinalityDepth,
		finalityDepthFlag,
		defaultConfig.Network.FinalityDepth,
		"the number of settlement blocks on top of a block before its roots are published",
	)

	cmd.Flags().IntVar(
		&params.rawConfig.Network.BlocksPerBatch,
		blocksPerBatchFlag,
		defaultConfig.Network.BlocksPerBatch,
		"the number of L2 blocks sealed into one batch",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.Traffic.Enabled,
		trafficFlag,
		false,
		"keep submitting deposits, withdrawals and transfers",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.LogFilePath,
		logFileLocationFlag,
		defaultConfig.LogFilePath,
		"write all logs to the file at specified location instead of writing them to console",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.JSONLogFormat,
		jsonLogFormatFlag,
		defaultConfig.JSONLogFormat,
		"write all logs as json",
	)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	// Check if the config file has been specified
	if isConfigFileSpecified(cmd) {
		if err := params.initConfigFromFile(); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed(chainIDsFlag) {
		params.setChainIDs()
	}

	return params.initRawParams()
}

func isConfigFileSpecified(cmd *cobra.Command) bool {
	return cmd.Flags().Changed(configFlag)
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)

	if err := runServerLoop(params.generateConfig(), outputter); err != nil {
		outputter.SetError(err)
		outputter.WriteOutput()

		return
	}
}

func runServerLoop(
	config *server.Config,
	outputter command.OutputFormatter,
) error {
	serverInstance, err := server.NewServer(config)
	if err != nil {
		return err
	}

	return helper.HandleSignals(serverInstance.Close, outputter)
}
