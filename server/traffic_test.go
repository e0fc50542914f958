package server

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/poll"
)

func newFastNetwork(t *testing.T) *devnet.Network {
	t.Helper()

	logger := hclog.NewNullLogger()

	network, err := devnet.NewNetwork(&devnet.Config{
		SettlementChainID: 505,
		ChainIDs:          []uint64{270, 271},
		FinalityDepth:     0,
		BlockInterval:     5 * time.Millisecond,
		BlocksPerBatch:    1,
		SealInterval:      5 * time.Millisecond,
		SyncInterval:      5 * time.Millisecond,
	}, devnet.MemoryStorageFactory(logger), logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, network.Close())
	})

	return network
}

func TestTraffic_CompletesEveryKind(t *testing.T) {
	t.Parallel()

	network := newFastNetwork(t)

	tr := newTraffic(network, &Traffic{
		Interval: 10 * time.Millisecond,
		Policy:   poll.Policy{Interval: 5 * time.Millisecond, Timeout: 10 * time.Second},
	}, hclog.NewNullLogger())

	ctx, cancel := context.WithCancel(context.Background())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return network.Run(gctx) })
	g.Go(func() error { return tr.run(gctx) })

	defer func() {
		cancel()
		require.NoError(t, g.Wait())
	}()

	type outcome struct {
		kind  bridge.Kind
		state bridge.State
	}

	expected := []outcome{
		{bridge.KindDeposit, bridge.StateFinalized},
		{bridge.KindDeposit, bridge.StateClaimed},
		{bridge.KindWithdrawal, bridge.StateL1Finalized},
		{bridge.KindTransfer, bridge.StateExecuted},
	}

	require.Eventually(t, func() bool {
		ops, err := network.Coordinator.Operations()
		if err != nil {
			return false
		}

		seen := map[outcome]bool{}
		for _, op := range ops {
			seen[outcome{op.Kind, op.State}] = true
		}

		for _, o := range expected {
			if !seen[o] {
				return false
			}
		}

		return true
	}, 10*time.Second, 20*time.Millisecond)
}

func TestTraffic_SubmitRoundRobin(t *testing.T) {
	t.Parallel()

	network := newFastNetwork(t)

	tr := newTraffic(network, &Traffic{Interval: time.Second}, hclog.NewNullLogger())

	network.L1.Mint(trafficAccount, trafficFunds)

	for _, chain := range network.Chains() {
		chain.Mint(trafficAccount, trafficFunds)
	}

	targets := make([]bridge.State, 0, 4)

	for i := 0; i < 4; i++ {
		_, target, err := tr.submit()
		require.NoError(t, err)

		targets = append(targets, target)
	}

	require.ElementsMatch(t, []bridge.State{
		bridge.StateFinalized, bridge.StateL1Finalized, bridge.StateExecuted, bridge.StateClaimed,
	}, targets)

	ops, err := network.Coordinator.Operations()
	require.NoError(t, err)
	require.Len(t, ops, 4)
}
