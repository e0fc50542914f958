package bridge

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/command"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/types"
)

type fundParams struct {
	chainID    uint64
	addressRaw string
	amountRaw  string

	address types.Address
	amount  *big.Int
}

func (fp *fundParams) validateFlags(withAmount bool) error {
	var err error

	if fp.address, err = helper.ParseAddress(fp.addressRaw); err != nil {
		return err
	}

	if !withAmount {
		return nil
	}

	fp.amount, err = helper.ParseAmount(fp.amountRaw)

	return err
}

var fp = &fundParams{}

func fundCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mints funds to an account of L1 (chain id 0) or of an L2 chain",
		PreRunE: func(*cobra.Command, []string) error {
			return fp.validateFlags(true)
		},
		Run: runFund,
	}

	cmd.Flags().Uint64Var(&fp.chainID, chainIDFlag, 0, "the chain, 0 for L1")
	cmd.Flags().StringVar(&fp.addressRaw, addressFlag, "", "the account to fund")
	cmd.Flags().StringVar(&fp.amountRaw, amountFlag, "", "the amount, decimal or 0x prefixed hex")

	_ = cmd.MarkFlagRequired(addressFlag)
	_ = cmd.MarkFlagRequired(amountFlag)

	return cmd
}

func balanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Returns the balance of an account of L1 (chain id 0) or of an L2 chain",
		PreRunE: func(*cobra.Command, []string) error {
			return fp.validateFlags(false)
		},
		Run: runBalance,
	}

	cmd.Flags().Uint64Var(&fp.chainID, chainIDFlag, 0, "the chain, 0 for L1")
	cmd.Flags().StringVar(&fp.addressRaw, addressFlag, "", "the account")

	_ = cmd.MarkFlagRequired(addressFlag)

	return cmd
}

func runFund(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	var ok bool

	if err := client.Call(fundFn, &ok, fp.chainID, fp.address, fmt.Sprintf("0x%x", fp.amount)); err != nil {
		outputter.SetError(fmt.Errorf("failed to fund %s: %w", fp.address, err))

		return
	}

	outputter.SetCommandResult(&balanceResult{ChainID: fp.chainID, Address: fp.address, Amount: fp.amount})
}

func runBalance(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	client, err := helper.GetJSONRPCClient(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	balance := new(big.Int)

	if err := client.Call(getBalanceFn, balance, fp.chainID, fp.address); err != nil {
		outputter.SetError(fmt.Errorf("failed to get balance of %s: %w", fp.address, err))

		return
	}

	outputter.SetCommandResult(&balanceResult{ChainID: fp.chainID, Address: fp.address, Balance: balance})
}
