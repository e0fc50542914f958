package chainroot

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/memory"
	"github.com/0xPolygon/interop-edge/types"
)

func newTestStorage(t require.TestingT) storage.Storage {
	s, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	return s
}

func batchRoot(n uint64) types.Hash {
	return crypto.Keccak256Hash(common.EncodeUint64ToBytes(n))
}

func TestTracker_AppendAndQuery(t *testing.T) {
	t.Parallel()

	tracker, err := NewTracker(270, newTestStorage(t), hclog.NewNullLogger())
	require.NoError(t, err)

	_, err = tracker.GetChainRootAt(0)
	require.True(t, errors.Is(err, ErrNotYetSealed))

	var roots []types.Hash

	for i := uint64(0); i < 5; i++ {
		root, err := tracker.Append(i, batchRoot(i))
		require.NoError(t, err)

		roots = append(roots, root)
	}

	// a single batch chain has the batch root as its chain root
	assert.Equal(t, batchRoot(0), roots[0])
	assert.Equal(t, roots[4], tracker.Latest())

	for i, expected := range roots {
		root, err := tracker.GetChainRootAt(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, expected, root)

		path, err := tracker.LocalPath(uint64(i))
		require.NoError(t, err)
		require.NoError(t, merkle.VerifyProof(uint64(i), batchRoot(uint64(i)), path, expected))
	}

	_, err = tracker.Append(7, batchRoot(7))
	require.True(t, errors.Is(err, ErrOutOfOrder))

	_, err = tracker.Append(3, batchRoot(3))
	require.True(t, errors.Is(err, ErrOutOfOrder))

	_, err = tracker.GetChainRootAt(5)
	require.True(t, errors.Is(err, ErrNotYetSealed))
}

func TestTracker_Restart(t *testing.T) {
	t.Parallel()

	store := newTestStorage(t)

	tracker, err := NewTracker(1, store, hclog.NewNullLogger())
	require.NoError(t, err)

	for i := uint64(0); i < 6; i++ {
		_, err := tracker.Append(i, batchRoot(i))
		require.NoError(t, err)
	}

	reopened, err := NewTracker(1, store, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, uint64(6), reopened.Size())
	require.Equal(t, tracker.Latest(), reopened.Latest())

	expected, err := tracker.Append(6, batchRoot(6))
	require.NoError(t, err)

	// a second tracker over the same frontier appends to the same root
	other, err := NewTracker(1, newTestStorage(t), hclog.NewNullLogger())
	require.NoError(t, err)

	for i := uint64(0); i <= 6; i++ {
		_, err := other.Append(i, batchRoot(i))
		require.NoError(t, err)
	}

	require.Equal(t, expected, other.Latest())
}

// TestTracker_Monotonicity checks historical roots never change and unsealed heights are never answered
func TestTracker_Monotonicity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(tt *rapid.T) {
		tracker, err := NewTracker(5, newTestStorage(tt), hclog.NewNullLogger())
		require.NoError(tt, err)

		n := rapid.Uint64Range(1, 40).Draw(tt, "batches")
		seen := make(map[uint64]types.Hash)

		for i := uint64(0); i < n; i++ {
			_, err := tracker.GetChainRootAt(i)
			require.True(tt, errors.Is(err, ErrNotYetSealed))

			root, err := tracker.Append(i, batchRoot(i))
			require.NoError(tt, err)

			seen[i] = root

			height := rapid.Uint64Range(0, i).Draw(tt, "height")
			historical, err := tracker.GetChainRootAt(height)
			require.NoError(tt, err)
			require.Equal(tt, seen[height], historical)
		}
	})
}
