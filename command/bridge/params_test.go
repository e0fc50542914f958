package bridge

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/types"
)

const (
	senderRaw   = "0x00000000000000000000000000000000000000a1"
	receiverRaw = "0x00000000000000000000000000000000000000b2"
)

func TestTransferParams_Validate(t *testing.T) {
	t.Parallel()

	tp := &transferParams{senderRaw: senderRaw, amountRaw: "0x0a"}
	require.NoError(t, tp.validateFlags())
	require.Equal(t, tp.sender, tp.receiver)
	require.Equal(t, types.ZeroAddress, tp.token)
	require.Zero(t, big.NewInt(10).Cmp(tp.amount))

	tp = &transferParams{senderRaw: senderRaw, receiverRaw: receiverRaw, amountRaw: "5"}
	require.NoError(t, tp.validateFlags())
	require.Equal(t, types.BytesToAddress([]byte{0xb2}), tp.receiver)

	for _, invalid := range []*transferParams{
		{senderRaw: "0x01", amountRaw: "5"},
		{senderRaw: senderRaw, receiverRaw: "nope", amountRaw: "5"},
		{senderRaw: senderRaw, tokenRaw: "0x1234", amountRaw: "5"},
		{senderRaw: senderRaw, amountRaw: "0"},
	} {
		require.Error(t, invalid.validateFlags())
	}
}

func TestRequests(t *testing.T) {
	t.Parallel()

	base := transferParams{senderRaw: senderRaw, receiverRaw: receiverRaw, amountRaw: "7"}
	require.NoError(t, base.validateFlags())

	deposit := (&depositParams{transferParams: base, chainID: 270, failOnL2: true}).request()
	require.Equal(t, uint64(270), deposit.ChainID)
	require.True(t, deposit.FailOnL2)
	require.Equal(t, base.receiver, deposit.Receiver)

	withdrawal := (&withdrawParams{transferParams: base, chainID: 271}).request()
	require.Equal(t, uint64(271), withdrawal.ChainID)
	require.Zero(t, big.NewInt(7).Cmp(withdrawal.Amount))

	transfer := (&crossChainParams{transferParams: base, source: 270, destination: 271}).request()
	require.Equal(t, uint64(270), transfer.SourceChainID)
	require.Equal(t, uint64(271), transfer.DestinationChainID)
}

func TestSettled(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op      *bridge.Operation
		settled bool
	}{
		{&bridge.Operation{Kind: bridge.KindDeposit, State: bridge.StateL2Executing}, false},
		{&bridge.Operation{Kind: bridge.KindDeposit, State: bridge.StateAwaitingClaim}, true},
		{&bridge.Operation{Kind: bridge.KindDeposit, State: bridge.StateFinalized}, true},
		{&bridge.Operation{Kind: bridge.KindWithdrawal, State: bridge.StateProofReady}, false},
		{&bridge.Operation{Kind: bridge.KindWithdrawal, State: bridge.StateL1Finalized}, true},
		{&bridge.Operation{Kind: bridge.KindTransfer, State: bridge.StateExecuted}, true},
	}

	for _, c := range cases {
		require.Equal(t, c.settled, settled(c.op), "%s %s", c.op.Kind, c.op.State)
	}
}
