package merkle

import (
	"github.com/0xPolygon/interop-edge/helper/keccak"
	"github.com/0xPolygon/interop-edge/types"
)

// LeafSize is the size of an encoded L2 -> L1 log leaf
const LeafSize = 88

// ZeroLeaf pads every tree up to a power of two. It is the hash of an empty L2 -> L1 log leaf.
var ZeroLeaf = types.BytesToHash(keccak.Keccak256(nil, make([]byte, LeafSize)))

// HashPair returns keccak256(left || right)
func HashPair(left, right types.Hash) types.Hash {
	var out types.Hash

	h := keccak.DefaultKeccakPool.Get()
	h.Write(left[:])  //nolint:errcheck
	h.Write(right[:]) //nolint:errcheck
	h.Sum(out[:0])
	keccak.DefaultKeccakPool.Put(h)

	return out
}

// zeroHashes returns the roots of all-padding subtrees, zeros[l] being the root of a subtree of height l
func zeroHashes(depth int) []types.Hash {
	zeros := make([]types.Hash, depth+1)
	zeros[0] = ZeroLeaf

	for l := 1; l <= depth; l++ {
		zeros[l] = HashPair(zeros[l-1], zeros[l-1])
	}

	return zeros
}

// MaxDepth bounds the height of every tree built by this package
const MaxDepth = 64

var zeros = zeroHashes(MaxDepth)

// ZeroHash returns the root of an all-padding subtree of the given height
func ZeroHash(height int) types.Hash {
	return zeros[height]
}

// depthFor returns ceil(log2(n)), the height of the smallest power of two tree holding n leaves
func depthFor(n uint64) int {
	depth := 0
	for depth < MaxDepth && (uint64(1)<<depth) < n {
		depth++
	}

	return depth
}
