package proof

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/jsonrpc"
)

var gp = &getParams{}

func getCommand() *cobra.Command {
	getCmd := &cobra.Command{
		Use:     "get",
		Short:   "Returns the inclusion proof of a message emitted by an L2 chain",
		PreRunE: runGetPreRun,
		Run:     runGet,
	}

	getCmd.Flags().Uint64Var(&gp.chainID, chainIDFlag, 0, "the chain emitting the message")
	getCmd.Flags().StringVar(&gp.txHashRaw, txHashFlag, "", "the hash of the transaction emitting the message")
	getCmd.Flags().Uint64Var(&gp.batch, batchFlag, 0, "the batch including the message")
	getCmd.Flags().Uint64Var(&gp.index, indexFlag, 0, "the index of the message in the batch")
	getCmd.Flags().StringVar(&gp.kindRaw, kindFlag, "interop", "the proof kind, direct or interop")
	getCmd.Flags().StringVar(&gp.outputPath, outFlag, "", "write the proof to a file")

	_ = getCmd.MarkFlagRequired(chainIDFlag)
	getCmd.MarkFlagsRequiredTogether(batchFlag, indexFlag)
	getCmd.MarkFlagsMutuallyExclusive(txHashFlag, batchFlag)

	return getCmd
}

func runGetPreRun(cmd *cobra.Command, _ []string) error {
	gp.hasPosition = cmd.Flags().Changed(batchFlag)

	return gp.validateFlags()
}

func runGet(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var resp jsonrpc.ProofResponse

	if err := client.Call(getInclusionProofFn, &resp, gp.chainID, gp.ref); err != nil {
		outputter.SetError(fmt.Errorf("failed to get inclusion proof: %w", err))

		return
	}

	if resp.Proof != nil && gp.outputPath != "" {
		if err := writeProof(gp.outputPath, resp.Proof); err != nil {
			outputter.SetError(fmt.Errorf("failed to write proof: %w", err))

			return
		}
	}

	outputter.SetCommandResult(&getResult{ProofResponse: resp, Path: gp.outputPath})
}
