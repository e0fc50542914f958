package interop

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/interop"
)

type haltParams struct {
	destination uint64
	source      uint64
}

var hp = &haltParams{}

func haltedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "halted",
		Short: "Lists the sources a destination chain stopped mirroring after a root conflict",
		Run:   runHalted,
	}

	cmd.Flags().Uint64Var(&hp.destination, destinationFlag, 0, "the destination chain")
	_ = cmd.MarkFlagRequired(destinationFlag)

	return cmd
}

func resumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Clears the conflict halt of a source on a destination chain",
		Run:   runResume,
	}

	cmd.Flags().Uint64Var(&hp.destination, destinationFlag, 0, "the destination chain")
	cmd.Flags().Uint64Var(&hp.source, sourceFlag, 0, "the halted source chain")

	_ = cmd.MarkFlagRequired(destinationFlag)
	_ = cmd.MarkFlagRequired(sourceFlag)

	return cmd
}

func runHalted(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	halted := map[uint64]interop.Halt{}

	if err := client.Call(getHaltedSourcesFn, &halted, hp.destination); err != nil {
		outputter.SetError(fmt.Errorf("failed to get halted sources: %w", err))

		return
	}

	res := make(haltedResult, 0, len(halted))
	for source, halt := range halted {
		res = append(res, &haltResult{Source: source, Halt: halt})
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Source < res[j].Source
	})

	outputter.SetCommandResult(res)
}

func runResume(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var resumed bool

	if err := client.Call(resumeSourceFn, &resumed, hp.destination, hp.source); err != nil {
		outputter.SetError(fmt.Errorf("failed to resume source %d: %w", hp.source, err))

		return
	}

	outputter.SetCommandResult(&resumeResult{Destination: hp.destination, Source: hp.source})
}
