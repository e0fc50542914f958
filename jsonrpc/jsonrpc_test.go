package jsonrpc

import (
	"context"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ethgojsonrpc "github.com/umbracle/ethgo/jsonrpc"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

func newTestServer(t *testing.T) (*devnet.Network, *ethgojsonrpc.Client) {
	t.Helper()

	logger := hclog.NewNullLogger()

	network, err := devnet.NewNetwork(&devnet.Config{
		SettlementChainID: 505,
		ChainIDs:          []uint64{270, 271},
	}, devnet.MemoryStorageFactory(logger), logger)
	require.NoError(t, err)

	srv, err := NewJSONRPC(logger, &Config{
		Store:                    network,
		Addr:                     &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0},
		AccessControlAllowOrigin: []string{"*"},
		Metrics:                  true,
	})
	require.NoError(t, err)

	client, err := ethgojsonrpc.NewClient("http://" + srv.Addr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = client.Close()
		require.NoError(t, srv.Close(ctx))
		require.NoError(t, network.Close())
	})

	return network, client
}

func TestJSONRPC_WithdrawalOverHTTP(t *testing.T) {
	t.Parallel()

	network, client := newTestServer(t)
	user := types.StringToAddress("0x1234")

	var ok bool
	require.NoError(t, client.Call("bridge_fund", &ok, 271, user, 100))
	require.True(t, ok)

	var handle types.Hash
	require.NoError(t, client.Call("bridge_withdraw", &handle, &bridge.WithdrawalRequest{
		ChainID:  271,
		Sender:   user,
		Receiver: user,
		Amount:   big.NewInt(60),
	}))

	var op bridge.Operation

	for i := 0; i < 5 && op.State != bridge.StateL1Finalized; i++ {
		require.NoError(t, network.Step())
		require.NoError(t, client.Call("bridge_getOperation", &op, handle))
	}

	require.Equal(t, bridge.StateL1Finalized, op.State)
	require.NotNil(t, op.Proof)

	var balance *big.Int
	require.NoError(t, client.Call("bridge_getBalance", &balance, 0, user))
	assert.Equal(t, big.NewInt(60), balance)

	// the proof travels back to the server and verifies against L1
	var verified VerifyResponse
	require.NoError(t, client.Call("interop_verifyProof", &verified, op.Proof))
	assert.True(t, verified.Valid)
	assert.Empty(t, verified.Error)

	var chainRoot types.Hash
	require.NoError(t, client.Call("interop_getChainRoot", &chainRoot, 271, *op.BatchNumber))
	assert.Equal(t, chainRoot, verified.Root)

	forged := *op.Proof
	forged.MessageIndex++

	require.NoError(t, client.Call("interop_verifyProof", &verified, &forged))
	assert.False(t, verified.Valid)
	assert.NotEmpty(t, verified.Error)
}

func TestJSONRPC_InclusionProofStatus(t *testing.T) {
	t.Parallel()

	network, client := newTestServer(t)

	var res ProofResponse
	require.NoError(t, client.Call("interop_getInclusionProof", &res, 270,
		&proof.Ref{Kind: proof.Interop, TxHash: types.StringToHash("0xabc")}))
	assert.Equal(t, proof.StatusNotFound.String(), res.Status)

	require.NoError(t, network.Step())

	// batch 0 of 270 is final and mirrored on 271
	var root types.Hash
	require.NoError(t, client.Call("interop_getInteropRoot", &root, 271, 270, 0))
	assert.NotEqual(t, types.ZeroHash, root)

	var halted map[uint64]interface{}
	require.NoError(t, client.Call("interop_getHaltedSources", &halted, 271))
	assert.Empty(t, halted)

	err := client.Call("interop_getChainRoot", &root, 270, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not yet sealed")

	err = client.Call("interop_getChainRoot", &root, 999, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), devnet.ErrUnknownChain.Error())
}
