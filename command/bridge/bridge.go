package bridge

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command/helper"
)

const (
	chainIDFlag     = "chain-id"
	sourceFlag      = "source"
	destinationFlag = "destination"
	senderFlag      = "sender"
	receiverFlag    = "receiver"
	tokenFlag       = "token"
	amountFlag      = "amount"
	failOnL2Flag    = "fail-on-l2"
	handleFlag      = "handle"
	addressFlag     = "address"
	waitFlag        = "wait"
	intervalFlag    = "poll-interval"
	timeoutFlag     = "timeout"

	depositFn            = "bridge_deposit"
	withdrawFn           = "bridge_withdraw"
	transferFn           = "bridge_transfer"
	getOperationFn       = "bridge_getOperation"
	listOperationsFn     = "bridge_listOperations"
	claimFailedDepositFn = "bridge_claimFailedDeposit"
	fundFn               = "bridge_fund"
	getBalanceFn         = "bridge_getBalance"
)

// GetCommand creates "bridge" helper command
func GetCommand() *cobra.Command {
	bridgeCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Top level bridge command.",
	}

	helper.RegisterJSONRPCFlag(bridgeCmd)

	registerSubcommands(bridgeCmd)

	return bridgeCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	baseCmd.AddCommand(
		// bridge deposit
		depositCommand(),
		// bridge withdraw
		withdrawCommand(),
		// bridge transfer
		transferCommand(),
		// bridge status
		statusCommand(),
		// bridge list
		listCommand(),
		// bridge claim
		claimCommand(),
		// bridge fund
		fundCommand(),
		// bridge balance
		balanceCommand(),
	)
}
