package interop

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/types"
)

type rootParams struct {
	chainID     uint64
	height      uint64
	destination uint64
	source      uint64
	batch       uint64
}

var rp = &rootParams{}

func chainRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain-root",
		Short: "Returns the chain root of a chain once a batch height is sealed",
		Run:   runChainRoot,
	}

	cmd.Flags().Uint64Var(&rp.chainID, chainIDFlag, 0, "the chain")
	cmd.Flags().Uint64Var(&rp.height, heightFlag, 0, "the batch height")

	_ = cmd.MarkFlagRequired(chainIDFlag)
	_ = cmd.MarkFlagRequired(heightFlag)

	return cmd
}

func interopRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "Returns the interop root a destination chain holds for a source batch",
		Run:   runInteropRoot,
	}

	cmd.Flags().Uint64Var(&rp.destination, destinationFlag, 0, "the chain holding the interop root")
	cmd.Flags().Uint64Var(&rp.source, sourceFlag, 0, "the chain that emitted the batch")
	cmd.Flags().Uint64Var(&rp.batch, batchFlag, 0, "the batch number")

	_ = cmd.MarkFlagRequired(destinationFlag)
	_ = cmd.MarkFlagRequired(sourceFlag)
	_ = cmd.MarkFlagRequired(batchFlag)

	return cmd
}

func runChainRoot(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var root types.Hash

	if err := client.Call(getChainRootFn, &root, rp.chainID, rp.height); err != nil {
		outputter.SetError(fmt.Errorf("failed to get chain root (chain=%d, height=%d): %w", rp.chainID, rp.height, err))

		return
	}

	outputter.SetCommandResult(&rootResult{
		Title: "CHAIN ROOT",
		Fields: []string{
			fmt.Sprintf("Chain|%d", rp.chainID),
			fmt.Sprintf("Height|%d", rp.height),
		},
		Root: root,
	})
}

func runInteropRoot(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var root types.Hash

	if err := client.Call(getInteropRootFn, &root, rp.destination, rp.source, rp.batch); err != nil {
		outputter.SetError(fmt.Errorf("failed to get interop root: %w", err))

		return
	}

	outputter.SetCommandResult(&rootResult{
		Title: "INTEROP ROOT",
		Fields: []string{
			fmt.Sprintf("Destination|%d", rp.destination),
			fmt.Sprintf("Source|%d", rp.source),
			fmt.Sprintf("Batch|%d", rp.batch),
			fmt.Sprintf("Delivered|%t", root != types.ZeroHash),
		},
		Root: root,
	})
}
