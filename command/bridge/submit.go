package bridge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	dp = &depositParams{}
	wp = &withdrawParams{}
	cp = &crossChainParams{}
)

func depositCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposits funds from L1 to an L2 chain",
		PreRunE: func(*cobra.Command, []string) error {
			return dp.validateFlags()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			submit(cmd, depositFn, dp.request())
		},
	}

	dp.setFlags(cmd)
	cmd.Flags().Uint64Var(&dp.chainID, chainIDFlag, 0, "the L2 chain receiving the deposit")
	cmd.Flags().BoolVar(&dp.failOnL2, failOnL2Flag, false,
		"make the deposit revert on L2 so that it must be claimed back")

	_ = cmd.MarkFlagRequired(chainIDFlag)

	return cmd
}

func withdrawCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraws funds from an L2 chain to L1",
		PreRunE: func(*cobra.Command, []string) error {
			return wp.validateFlags()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			submit(cmd, withdrawFn, wp.request())
		},
	}

	wp.setFlags(cmd)
	cmd.Flags().Uint64Var(&wp.chainID, chainIDFlag, 0, "the L2 chain the funds leave")

	_ = cmd.MarkFlagRequired(chainIDFlag)

	return cmd
}

func transferCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfers funds between two L2 chains of the settlement layer",
		PreRunE: func(*cobra.Command, []string) error {
			if cp.source == cp.destination {
				return fmt.Errorf("source and destination must differ, both are %d", cp.source)
			}

			return cp.validateFlags()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			submit(cmd, transferFn, cp.request())
		},
	}

	cp.setFlags(cmd)
	cmd.Flags().Uint64Var(&cp.source, sourceFlag, 0, "the L2 chain the funds leave")
	cmd.Flags().Uint64Var(&cp.destination, destinationFlag, 0, "the L2 chain receiving the funds")

	_ = cmd.MarkFlagRequired(sourceFlag)
	_ = cmd.MarkFlagRequired(destinationFlag)

	return cmd
}

// submit sends the request and outputs the handle of the new operation
func submit(cmd *cobra.Command, method string, req interface{}) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var handle types.Hash

	if err := client.Call(method, &handle, req); err != nil {
		outputter.SetError(fmt.Errorf("failed to submit %s: %w", cmd.Name(), err))

		return
	}

	outputter.SetCommandResult(&submitResult{Kind: cmd.Name(), Handle: handle})
}
