package bridge

import (
	"math/big"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/types"
)

// transferParams are the parameters shared by every command moving funds
type transferParams struct {
	senderRaw   string
	receiverRaw string
	tokenRaw    string
	amountRaw   string

	sender   types.Address
	receiver types.Address
	token    types.Address
	amount   *big.Int
}

func (tp *transferParams) setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tp.senderRaw, senderFlag, "", "the account sending the funds")
	cmd.Flags().StringVar(&tp.receiverRaw, receiverFlag, "",
		"the account receiving the funds, the sender if omitted")
	cmd.Flags().StringVar(&tp.tokenRaw, tokenFlag, "", "the token address, the native token if omitted")
	cmd.Flags().StringVar(&tp.amountRaw, amountFlag, "", "the amount, decimal or 0x prefixed hex")

	_ = cmd.MarkFlagRequired(senderFlag)
	_ = cmd.MarkFlagRequired(amountFlag)
}

func (tp *transferParams) validateFlags() error {
	var err error

	if tp.sender, err = helper.ParseAddress(tp.senderRaw); err != nil {
		return err
	}

	tp.receiver = tp.sender

	if tp.receiverRaw != "" {
		if tp.receiver, err = helper.ParseAddress(tp.receiverRaw); err != nil {
			return err
		}
	}

	tp.token = types.ZeroAddress

	if tp.tokenRaw != "" {
		if tp.token, err = helper.ParseAddress(tp.tokenRaw); err != nil {
			return err
		}
	}

	tp.amount, err = helper.ParseAmount(tp.amountRaw)

	return err
}

type depositParams struct {
	transferParams
	chainID  uint64
	failOnL2 bool
}

func (dp *depositParams) request() *bridge.DepositRequest {
	return &bridge.DepositRequest{
		ChainID:  dp.chainID,
		Sender:   dp.sender,
		Receiver: dp.receiver,
		Token:    dp.token,
		Amount:   dp.amount,
		FailOnL2: dp.failOnL2,
	}
}

type withdrawParams struct {
	transferParams
	chainID uint64
}

func (wp *withdrawParams) request() *bridge.WithdrawalRequest {
	return &bridge.WithdrawalRequest{
		ChainID:  wp.chainID,
		Sender:   wp.sender,
		Receiver: wp.receiver,
		Token:    wp.token,
		Amount:   wp.amount,
	}
}

type crossChainParams struct {
	transferParams
	source      uint64
	destination uint64
}

func (cp *crossChainParams) request() *bridge.TransferRequest {
	return &bridge.TransferRequest{
		SourceChainID:      cp.source,
		DestinationChainID: cp.destination,
		Sender:             cp.sender,
		Receiver:           cp.receiver,
		Token:              cp.token,
		Amount:             cp.amount,
	}
}
