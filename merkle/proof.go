package merkle

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrIndexOutOfRange is returned when a leaf index is not covered by a tree or a proof
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	// ErrRootMismatch is returned when a proof does not fold into the expected root
	ErrRootMismatch = errors.New("proof does not match root")
)

// Fold recomputes the root from a leaf and its sibling path. At level l the bit l of
// index selects the ordering: a zero bit means the current node is the left child
// (lower index first), a one bit means the sibling is on the left.
// An index with bits set above the proof length is rejected, so every
// (index, proof length) pair designates exactly one leaf position.
func Fold(index uint64, leaf types.Hash, siblings []types.Hash) (types.Hash, error) {
	if len(siblings) > MaxDepth {
		return types.ZeroHash, fmt.Errorf("%w: proof of length %d exceeds max depth", ErrIndexOutOfRange, len(siblings))
	}

	if len(siblings) < MaxDepth && index>>uint(len(siblings)) != 0 {
		return types.ZeroHash, fmt.Errorf("%w: index %d does not fit a proof of length %d",
			ErrIndexOutOfRange, index, len(siblings))
	}

	current := leaf

	for _, sibling := range siblings {
		if index%2 == 0 {
			current = HashPair(current, sibling)
		} else {
			current = HashPair(sibling, current)
		}

		index /= 2
	}

	return current, nil
}

// VerifyProof verifies a proof of membership of leaf at index for the given root
func VerifyProof(index uint64, leaf types.Hash, siblings []types.Hash, root types.Hash) error {
	computed, err := Fold(index, leaf, siblings)
	if err != nil {
		return err
	}

	if computed != root {
		return fmt.Errorf("%w: leaf with index %d, computed %s, expected %s", ErrRootMismatch, index, computed, root)
	}

	return nil
}
