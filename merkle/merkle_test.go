package merkle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/types"
)

func testLeaves(n int) []types.Hash {
	leaves := make([]types.Hash, n)
	for i := range leaves {
		leaves[i] = crypto.Keccak256Hash([]byte{byte(i), byte(i >> 8)})
	}

	return leaves
}

func TestZeroLeaf(t *testing.T) {
	t.Parallel()

	require.Equal(t, crypto.Keccak256Hash(make([]byte, LeafSize)), ZeroLeaf)
	require.Equal(t, HashPair(ZeroLeaf, ZeroLeaf), ZeroHash(1))
}

func TestTree_SmallShapes(t *testing.T) {
	t.Parallel()

	empty := NewTree(nil)
	assert.Equal(t, ZeroLeaf, empty.Root())
	assert.Equal(t, 0, empty.Len())

	_, err := empty.Proof(0)
	require.Error(t, err)

	leaves := testLeaves(3)

	single := NewTree(leaves[:1])
	assert.Equal(t, leaves[0], single.Root())
	assert.Equal(t, 0, single.Depth())

	proof, err := single.Proof(0)
	require.NoError(t, err)
	assert.Empty(t, proof)

	three := NewTree(leaves)
	expected := HashPair(HashPair(leaves[0], leaves[1]), HashPair(leaves[2], ZeroLeaf))
	assert.Equal(t, expected, three.Root())
	assert.Equal(t, 2, three.Depth())

	proof, err = three.Proof(2)
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{ZeroLeaf, HashPair(leaves[0], leaves[1])}, proof)

	_, err = three.Proof(3)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestFold_RejectsIndexBeyondProof(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(4)
	tree := NewTree(leaves)

	proof, err := tree.Proof(1)
	require.NoError(t, err)
	require.NoError(t, VerifyProof(1, leaves[1], proof, tree.Root()))

	// index 5 has the same low bits as 1 but does not fit a proof of length 2
	_, err = Fold(5, leaves[1], proof)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))

	err = VerifyProof(0, leaves[1], proof, tree.Root())
	require.True(t, errors.Is(err, ErrRootMismatch))
}

func TestTree_ProofsVerify(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(tt *rapid.T) {
		n := rapid.IntRange(1, 70).Draw(tt, "leaves")
		leaves := testLeaves(n)
		tree := NewTree(leaves)
		index := rapid.Uint64Range(0, uint64(n-1)).Draw(tt, "index")

		proof, err := tree.Proof(index)
		require.NoError(tt, err)
		require.Len(tt, proof, tree.Depth())
		require.NoError(tt, VerifyProof(index, leaves[index], proof, tree.Root()))

		// flipping any single bit of the path or the leaf breaks the proof
		if len(proof) > 0 {
			pos := rapid.IntRange(0, len(proof)-1).Draw(tt, "sibling")
			bit := rapid.IntRange(0, 255).Draw(tt, "bit")

			mutated := append([]types.Hash(nil), proof...)
			mutated[pos][bit/8] ^= 1 << (bit % 8)
			require.Error(tt, VerifyProof(index, leaves[index], mutated, tree.Root()))
		}

		leaf := leaves[index]
		leaf[0] ^= 0x80
		require.Error(tt, VerifyProof(index, leaf, proof, tree.Root()))
	})
}

func TestAccumulator_MatchesTree(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(tt *rapid.T) {
		n := rapid.IntRange(1, 80).Draw(tt, "leaves")
		leaves := testLeaves(n)
		acc := NewAccumulator()

		for i, leaf := range leaves {
			root, proof, err := acc.Append(leaf)
			require.NoError(tt, err)

			// the root after appending leaf i is the root of a padded tree over leaves[0..i]
			require.Equal(tt, NewTree(leaves[:i+1]).Root(), root)
			require.NoError(tt, VerifyProof(uint64(i), leaf, proof, root))
		}

		require.Equal(tt, uint64(n), acc.Size())
	})
}

func TestAccumulator_FrontierRestore(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(11)
	acc := NewAccumulator()

	for _, leaf := range leaves[:7] {
		_, _, err := acc.Append(leaf)
		require.NoError(t, err)
	}

	restored, err := NewAccumulatorFromFrontier(acc.Frontier())
	require.NoError(t, err)
	require.Equal(t, acc.Root(), restored.Root())

	for _, leaf := range leaves[7:] {
		expectedRoot, expectedProof, err := acc.Append(leaf)
		require.NoError(t, err)

		root, proof, err := restored.Append(leaf)
		require.NoError(t, err)

		require.Equal(t, expectedRoot, root)
		require.Equal(t, expectedProof, proof)
	}

	assert.Equal(t, ZeroLeaf, NewAccumulator().Root())
}
