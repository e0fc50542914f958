package merkle

import (
	"fmt"

	"github.com/0xPolygon/interop-edge/types"
)

// Accumulator is an append-only merkle tree that keeps only its frontier: for every
// level l, branch[l] is the root of the last complete left subtree of height l.
// The tree grows dynamically: with n leaves its depth is ceil(log2(n)) and the
// missing right part is padded with ZeroLeaf subtrees, so a one leaf tree has the
// leaf as its root.
//
// Accumulator is not safe for concurrent use.
type Accumulator struct {
	size   uint64
	branch []types.Hash
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{branch: make([]types.Hash, MaxDepth+1)}
}

// NewAccumulatorFromFrontier restores an accumulator from its persisted frontier
func NewAccumulatorFromFrontier(frontier *types.Frontier) (*Accumulator, error) {
	if len(frontier.Branch) > MaxDepth+1 {
		return nil, fmt.Errorf("frontier has %d branches, max is %d", len(frontier.Branch), MaxDepth+1)
	}

	acc := NewAccumulator()
	acc.size = frontier.Size
	copy(acc.branch, frontier.Branch)

	return acc, nil
}

// Size returns the number of appended leaves
func (a *Accumulator) Size() uint64 {
	return a.size
}

// Frontier returns a snapshot of the accumulator state to persist
func (a *Accumulator) Frontier() *types.Frontier {
	depth := depthFor(a.size) + 1
	if depth > len(a.branch) {
		depth = len(a.branch)
	}

	branch := make([]types.Hash, depth)
	copy(branch, a.branch[:depth])

	return &types.Frontier{Size: a.size, Branch: branch}
}

// Append adds a leaf and returns the new root together with the proof of the
// appended leaf against that root. The leaf index is Size() before the call.
func (a *Accumulator) Append(leaf types.Hash) (types.Hash, []types.Hash, error) {
	if a.size == ^uint64(0) {
		return types.ZeroHash, nil, fmt.Errorf("accumulator is full")
	}

	index := a.size
	depth := depthFor(index + 1)

	// left siblings are complete subtrees already in the frontier,
	// right siblings are empty since the leaf is the last one
	proof := make([]types.Hash, depth)

	for l := 0; l < depth; l++ {
		if (index>>uint(l))&1 == 1 {
			proof[l] = a.branch[l]
		} else {
			proof[l] = ZeroHash(l)
		}
	}

	node := leaf
	a.size++

	for l, s := 0, a.size; l <= MaxDepth; l, s = l+1, s>>1 {
		if s&1 == 1 {
			a.branch[l] = node

			break
		}

		node = HashPair(a.branch[l], node)
	}

	return a.Root(), proof, nil
}

// Root returns the current root. An empty accumulator has ZeroLeaf as its root.
func (a *Accumulator) Root() types.Hash {
	if a.size == 0 {
		return ZeroLeaf
	}

	depth := depthFor(a.size)

	if a.size == uint64(1)<<depth {
		// the tree is full, its root is the top of the frontier
		return a.branch[depth]
	}

	node := ZeroLeaf

	for l, s := 0, a.size; l < depth; l, s = l+1, s>>1 {
		if s&1 == 1 {
			node = HashPair(a.branch[l], node)
		} else {
			node = HashPair(node, ZeroHash(l))
		}
	}

	return node
}
