package commitment

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrOutOfRangeIndex is returned when a message index is not lower than the message count of the batch
	ErrOutOfRangeIndex = errors.New("message index out of range")
	// ErrRootMismatch is returned when a batch does not hash to the root it was sealed with
	ErrRootMismatch = errors.New("batch root mismatch")
)

// DefaultCacheSize is the number of batch trees kept by a builder
const DefaultCacheSize = 128

// Commitment is the merkle commitment of a batch. Leaves are the messages in emission
// order followed by one "roots assigned" marker per block.
type Commitment struct {
	Root         types.Hash
	MessageCount int
	Markers      []types.Hash

	tree *merkle.Tree
}

// Proof returns the siblings from the leaf of the message at index up to the batch root
func (c *Commitment) Proof(messageIndex uint64) ([]types.Hash, error) {
	if messageIndex >= uint64(c.MessageCount) {
		return nil, fmt.Errorf("%w: index %d, batch has %d messages", ErrOutOfRangeIndex, messageIndex, c.MessageCount)
	}

	return c.tree.Proof(messageIndex)
}

// Depth returns the length of every message proof of the batch
func (c *Commitment) Depth() int {
	return c.tree.Depth()
}

type cacheKey struct {
	chainID uint64
	number  uint64
}

// Builder computes batch commitments. Trees of sealed batches are cached since a sealed
// batch never changes.
type Builder struct {
	logger hclog.Logger
	cache  *lru.Cache
}

// NewBuilder creates a commitment builder keeping up to cacheSize batch trees
func NewBuilder(logger hclog.Logger, cacheSize int) (*Builder, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &Builder{logger: logger.Named("commitment"), cache: cache}, nil
}

// Seal computes the commitment of a freshly built batch and sets its root
func (b *Builder) Seal(batch *types.Batch) (*Commitment, error) {
	if batch.Root != types.ZeroHash {
		return nil, fmt.Errorf("batch %d of chain %d is already sealed", batch.Number, batch.ChainID)
	}

	c := build(batch)
	batch.Root = c.Root

	b.cache.Add(cacheKey{chainID: batch.ChainID, number: batch.Number}, c)

	b.logger.Debug("batch sealed", "chain", batch.ChainID, "batch", batch.Number,
		"messages", c.MessageCount, "blocks", len(batch.Blocks), "root", c.Root)

	return c, nil
}

// Build returns the commitment of a sealed batch, checking it against the sealed root
func (b *Builder) Build(batch *types.Batch) (*Commitment, error) {
	key := cacheKey{chainID: batch.ChainID, number: batch.Number}

	if cached, ok := b.cache.Get(key); ok {
		if c, ok := cached.(*Commitment); ok && c.Root == batch.Root {
			return c, nil
		}
	}

	c := build(batch)

	if batch.Root != types.ZeroHash && c.Root != batch.Root {
		return nil, fmt.Errorf("%w: batch %d of chain %d sealed with %s, computed %s",
			ErrRootMismatch, batch.Number, batch.ChainID, batch.Root, c.Root)
	}

	if batch.Root != types.ZeroHash {
		b.cache.Add(key, c)
	}

	return c, nil
}

// ComputeLocalPath returns the batch root and the siblings anchoring the message at
// messageIndex into it. It is deterministic: the same batch always yields the same path.
func (b *Builder) ComputeLocalPath(batch *types.Batch, messageIndex uint64) (types.Hash, []types.Hash, error) {
	c, err := b.Build(batch)
	if err != nil {
		return types.ZeroHash, nil, err
	}

	proof, err := c.Proof(messageIndex)
	if err != nil {
		return types.ZeroHash, nil, err
	}

	return c.Root, proof, nil
}

func build(batch *types.Batch) *Commitment {
	messages := batch.Messages()
	leaves := make([]types.Hash, 0, len(messages)+len(batch.Blocks))
	markers := make([]types.Hash, len(batch.Blocks))

	for _, msg := range messages {
		leaves = append(leaves, MessageLeaf(msg))
	}

	for i, block := range batch.Blocks {
		markers[i] = BlockMarker(block)
		leaves = append(leaves, markers[i])
	}

	tree := merkle.NewTree(leaves)

	return &Commitment{
		Root:         tree.Root(),
		MessageCount: len(messages),
		Markers:      markers,
		tree:         tree,
	}
}
