package merkle

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/interop-edge/types"
)

var errEmptyTree = errors.New("tree has no leaves")

// Tree is a fixed binary merkle tree over pre-hashed leaves, padded with ZeroLeaf
// up to the next power of two
type Tree struct {
	// leaves is the number of real (non padding) leaves
	leaves int
	// depth is the number of levels between a leaf and the root
	depth int
	// nodes is the heap layout of the tree: nodes[1] is the root and the
	// children of nodes[i] are nodes[2i] and nodes[2i+1]
	nodes []types.Hash
}

// NewTree creates a tree over the given leaf hashes. An empty leaf set yields a
// single padding leaf, so its root is ZeroLeaf.
func NewTree(leaves []types.Hash) *Tree {
	count := len(leaves)
	if count == 0 {
		leaves = []types.Hash{ZeroLeaf}
	}

	depth := depthFor(uint64(len(leaves)))
	width := 1 << depth
	nodes := make([]types.Hash, 2*width)

	copy(nodes[width:], leaves)

	for i := width + len(leaves); i < 2*width; i++ {
		nodes[i] = ZeroLeaf
	}

	for i := width - 1; i > 0; i-- {
		nodes[i] = HashPair(nodes[2*i], nodes[2*i+1])
	}

	return &Tree{leaves: count, depth: depth, nodes: nodes}
}

// Root returns the merkle root
func (t *Tree) Root() types.Hash {
	return t.nodes[1]
}

// Len returns the number of real leaves
func (t *Tree) Len() int {
	return t.leaves
}

// Depth returns the length of every proof generated by the tree
func (t *Tree) Depth() int {
	return t.depth
}

// Leaf returns the leaf at the given index
func (t *Tree) Leaf(index uint64) (types.Hash, error) {
	if t.leaves == 0 {
		return types.ZeroHash, errEmptyTree
	}

	if index >= uint64(t.leaves) {
		return types.ZeroHash, fmt.Errorf("%w: leaf %d, tree has %d leaves", ErrIndexOutOfRange, index, t.leaves)
	}

	return t.nodes[uint64(len(t.nodes)/2)+index], nil
}

// Proof generates the sibling path from the leaf at index up to the root,
// lowest level first
func (t *Tree) Proof(index uint64) ([]types.Hash, error) {
	if _, err := t.Leaf(index); err != nil {
		return nil, err
	}

	proof := make([]types.Hash, 0, t.depth)

	for i := index + uint64(len(t.nodes)/2); i > 1; i /= 2 {
		proof = append(proof, t.nodes[i^1])
	}

	return proof, nil
}
