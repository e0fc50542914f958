package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/memory"
	"github.com/0xPolygon/interop-edge/types"
)

const settlementChainID = 505

func newTestAggregator(t *testing.T, depth uint64) (*Aggregator, storage.Storage) {
	t.Helper()

	store, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	a, err := New(settlementChainID, &Config{FinalityDepth: depth, SealInterval: 10 * time.Millisecond},
		store, hclog.NewNullLogger())
	require.NoError(t, err)

	return a, store
}

func chainRoot(chainID, n uint64) types.Hash {
	return crypto.Keccak256Hash(common.EncodeUint64ToBytes(chainID), common.EncodeUint64ToBytes(n))
}

func TestAggregator_SealFinalizeAndGlobalPath(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t, 0)

	// chains publish in any relative order
	require.NoError(t, a.Publish(271, 0, chainRoot(271, 0)))
	require.NoError(t, a.Publish(270, 0, chainRoot(270, 0)))
	require.NoError(t, a.Publish(270, 1, chainRoot(270, 1)))

	_, _, err := a.ComputeGlobalPath(270, 0)
	require.True(t, errors.Is(err, ErrBatchNotFinalized))

	block, err := a.SealBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Number)
	require.Len(t, block.Leaves, 3)

	// ordered by (chain, batch)
	assert.Equal(t, uint64(270), block.Leaves[0].ChainID)
	assert.Equal(t, uint64(1), block.Leaves[1].BatchNumber)
	assert.Equal(t, uint64(271), block.Leaves[2].ChainID)

	// sealed is not final
	_, _, err = a.ComputeGlobalPath(270, 0)
	require.True(t, errors.Is(err, ErrBatchNotFinalized))

	events, err := a.InteropRootEvents(0, 10)
	require.NoError(t, err)
	require.Empty(t, events)

	require.NoError(t, a.Finalize(1))
	require.NoError(t, a.Finalize(1))

	for i, leaf := range block.Leaves {
		root, siblings, err := a.ComputeGlobalPath(leaf.ChainID, leaf.BatchNumber)
		require.NoError(t, err)
		require.Equal(t, block.NetworkRoot, root)
		require.NoError(t, merkle.VerifyProof(uint64(i), NetworkLeaf(leaf.ChainID, leaf.ChainRoot), siblings, root))
	}

	events, err = a.InteropRootEvents(0, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	for i, event := range events {
		assert.Equal(t, uint64(i), event.Seq)
		assert.Equal(t, block.NetworkRoot, event.Root)
		assert.Equal(t, uint64(1), event.SettlementBlock)
	}

	events, err = a.InteropRootEvents(2, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	empty, err := a.SealBlock()
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestAggregator_DuplicateAndConflict(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t, 0)

	require.NoError(t, a.Publish(270, 0, chainRoot(270, 0)))
	// at least once delivery
	require.NoError(t, a.Publish(270, 0, chainRoot(270, 0)))

	err := a.Publish(270, 2, chainRoot(270, 2))
	require.True(t, errors.Is(err, ErrOutOfOrder))

	err = a.Publish(270, 0, chainRoot(999, 0))
	require.True(t, errors.Is(err, ErrRootConflict))

	var conflict *RootConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, chainRoot(270, 0), conflict.Existing)

	// the chain is halted, other chains keep going
	err = a.Publish(270, 1, chainRoot(270, 1))
	require.True(t, errors.Is(err, ErrChainHalted))
	require.NoError(t, a.Publish(271, 0, chainRoot(271, 0)))
	require.Contains(t, a.Halted(), uint64(270))

	a.Resume(270)
	require.NoError(t, a.Publish(270, 1, chainRoot(270, 1)))

	block, err := a.SealBlock()
	require.NoError(t, err)
	require.Len(t, block.Leaves, 3)
	assert.Equal(t, chainRoot(270, 0), block.Leaves[0].ChainRoot)
}

func TestAggregator_FinalityDepthAndRestart(t *testing.T) {
	t.Parallel()

	a, store := newTestAggregator(t, 1)

	require.NoError(t, a.Publish(270, 0, chainRoot(270, 0)))
	_, err := a.SealBlock()
	require.NoError(t, err)

	require.NoError(t, a.FinalizeReady())

	_, err = a.GlobalPath(270, 0)
	require.True(t, errors.Is(err, ErrBatchNotFinalized))

	require.NoError(t, a.Publish(270, 1, chainRoot(270, 1)))

	// a restarted aggregator keeps the pending publication
	restarted, err := New(settlementChainID, &Config{FinalityDepth: 1}, store, hclog.NewNullLogger())
	require.NoError(t, err)

	block, err := restarted.SealBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.Number)

	require.NoError(t, restarted.FinalizeReady())

	path, err := restarted.GlobalPath(270, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), path.SettlementBlock)

	_, err = restarted.GlobalPath(270, 1)
	require.True(t, errors.Is(err, ErrBatchNotFinalized))
}

func TestAggregator_Run(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(t, 0)
	require.NoError(t, a.Publish(270, 0, chainRoot(270, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := a.GlobalPath(270, 0)

		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
