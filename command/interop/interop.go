package interop

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command/helper"
)

const (
	chainIDFlag     = "chain-id"
	heightFlag      = "height"
	destinationFlag = "destination"
	sourceFlag      = "source"
	batchFlag       = "batch"

	getChainRootFn     = "interop_getChainRoot"
	getInteropRootFn   = "interop_getInteropRoot"
	getHaltedSourcesFn = "interop_getHaltedSources"
	resumeSourceFn     = "interop_resumeSource"
)

// GetCommand creates "interop" helper command
func GetCommand() *cobra.Command {
	interopCmd := &cobra.Command{
		Use:   "interop",
		Short: "Inspects chain roots and interop roots",
	}

	helper.RegisterJSONRPCFlag(interopCmd)

	interopCmd.AddCommand(
		chainRootCommand(),
		interopRootCommand(),
		haltedCommand(),
		resumeCommand(),
	)

	return interopCmd
}
