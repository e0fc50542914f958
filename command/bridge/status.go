package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/poll"
)

type statusParams struct {
	handleRaw string
	wait      bool
	interval  time.Duration
	timeout   time.Duration
}

var sp = &statusParams{}

func statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Returns the state of a bridging operation",
		Run:   runStatus,
	}

	cmd.Flags().StringVar(&sp.handleRaw, handleFlag, "", "the handle returned when the operation was submitted")
	cmd.Flags().BoolVar(&sp.wait, waitFlag, false,
		"wait until the operation is final or awaits a claim")
	cmd.Flags().DurationVar(&sp.interval, intervalFlag, time.Second, "the polling interval used with --wait")
	cmd.Flags().DurationVar(&sp.timeout, timeoutFlag, 5*time.Minute, "give up waiting after this long")

	_ = cmd.MarkFlagRequired(handleFlag)

	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists every bridging operation known to the node",
		Run:   runList,
	}
}

func claimCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claims back on L1 the funds of a deposit that failed on L2",
		Run:   runClaim,
	}

	cmd.Flags().StringVar(&sp.handleRaw, handleFlag, "", "the handle of the failed deposit")

	_ = cmd.MarkFlagRequired(handleFlag)

	return cmd
}

// settled reports whether waiting for the operation is over
func settled(op *bridge.Operation) bool {
	return op.State == bridge.StateAwaitingClaim || bridge.IsTerminal(op.Kind, op.State)
}

func runStatus(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	handle, err := helper.ParseHash(sp.handleRaw)
	if err != nil {
		outputter.SetError(err)

		return
	}

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var op *bridge.Operation

	get := func(context.Context) (bool, error) {
		if err := client.Call(getOperationFn, &op, handle); err != nil {
			return false, err
		}

		return !sp.wait || settled(op), nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	policy := poll.Policy{Interval: sp.interval, Timeout: sp.timeout}

	if err := poll.Until(ctx, policy, get); err != nil {
		outputter.SetError(fmt.Errorf("failed to get operation %s: %w", handle, err))

		return
	}

	outputter.SetCommandResult(&operationResult{op})
}

func runList(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var ops []*bridge.Operation

	if err := client.Call(listOperationsFn, &ops); err != nil {
		outputter.SetError(fmt.Errorf("failed to list operations: %w", err))

		return
	}

	outputter.SetCommandResult(operationsResult(ops))
}

func runClaim(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	handle, err := helper.ParseHash(sp.handleRaw)
	if err != nil {
		outputter.SetError(err)

		return
	}

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var res bridge.ClaimResult

	if err := client.Call(claimFailedDepositFn, &res, handle); err != nil {
		outputter.SetError(fmt.Errorf("failed to claim deposit %s: %w", handle, err))

		return
	}

	outputter.SetCommandResult(&claimResult{res})
}
