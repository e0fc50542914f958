package proof

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command/helper"
)

// GetCommand creates "proof" helper command
func GetCommand() *cobra.Command {
	proofCmd := &cobra.Command{
		Use:   "proof",
		Short: "Fetches and verifies message inclusion proofs",
	}

	helper.RegisterJSONRPCFlag(proofCmd)

	proofCmd.AddCommand(
		// proof get
		getCommand(),
		// proof verify
		verifyCommand(),
	)

	return proofCmd
}
