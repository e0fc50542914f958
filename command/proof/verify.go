package proof

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/jsonrpc"
)

var vp = &verifyParams{}

func verifyCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verifies an inclusion proof against L1 (direct) or a destination chain (interop)",
		Run:   runVerify,
	}

	verifyCmd.Flags().StringVar(&vp.proofPath, fileFlag, "", "the file holding the proof")
	verifyCmd.Flags().Uint64Var(&vp.destination, destinationFlag, 0,
		"the chain verifying an interop proof")

	_ = verifyCmd.MarkFlagRequired(fileFlag)

	return verifyCmd
}

func runVerify(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	p, err := readProof(vp.proofPath)
	if err != nil {
		outputter.SetError(err)

		return
	}

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var resp jsonrpc.VerifyResponse

	if err := client.Call(verifyProofFn, &resp, p, vp.destination); err != nil {
		outputter.SetError(fmt.Errorf("failed to verify proof: %w", err))

		return
	}

	outputter.SetCommandResult(&verifyResult{VerifyResponse: resp, Kind: p.Kind.String()})
}
