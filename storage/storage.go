package storage

import (
	"errors"

	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrNotFound is returned when the requested item is not persisted
	ErrNotFound = errors.New("not found")
	// ErrAlreadySet is returned when a write-once column already holds a different value
	ErrAlreadySet = errors.New("value already set")
)

// Storage is the durable store of the commitment and proof subsystem
type Storage interface {
	// AppendBatch persists a sealed batch together with the "roots assigned" marker of every
	// block (markers[i] belongs to batch.Blocks[i]) and the tx lookup of every message
	AppendBatch(batch *types.Batch, markers []types.Hash) error
	// ReadBatch returns a batch with its merkle path columns merged in
	ReadBatch(chainID, number uint64) (*types.Batch, error)
	WriteLocalMerklePath(chainID, number uint64, path []types.Hash) error
	ReadLocalMerklePath(chainID, number uint64) ([]types.Hash, error)
	WriteGlobalMerklePath(chainID, number uint64, path *types.GlobalPath) error
	ReadGlobalMerklePath(chainID, number uint64) (*types.GlobalPath, error)
	ReadTxLookup(txHash types.Hash) (*types.MessageRef, error)
	ReadBlockMarker(chainID, blockNumber uint64) (types.Hash, error)

	// WriteChainRoot atomically persists the chain root at a height, the local path of the
	// batch at that height and the accumulator frontier
	WriteChainRoot(chainID, height uint64, root types.Hash, localPath []types.Hash, frontier *types.Frontier) error
	ReadChainRoot(chainID, height uint64) (types.Hash, error)
	ReadFrontier(chainID uint64) (*types.Frontier, error)

	// WritePublication records a chain root publication and the new pending set
	WritePublication(pub *types.Publication, pending types.Publications) error
	ReadPublication(chainID, batchNumber uint64) (*types.Publication, error)
	ReadPublicationCount(chainID uint64) (uint64, error)
	ReadPendingPublications() (types.Publications, error)

	// SealSettlementBlock persists a sealed block and empties the pending set
	SealSettlementBlock(block *types.SettlementBlock) error
	// FinalizeSettlementBlock marks the block final, writes the global path of every
	// leaf (paths[i] belongs to block.Leaves[i]) and appends the interop root events
	FinalizeSettlementBlock(block *types.SettlementBlock, paths []*types.GlobalPath,
		events []*types.InteropRootEvent) error
	ReadSettlementBlock(number uint64) (*types.SettlementBlock, error)
	// ReadSettlementHead returns the last sealed and last finalized settlement block numbers
	ReadSettlementHead() (sealed uint64, finalized uint64, err error)

	ReadInteropRootEvent(seq uint64) (*types.InteropRootEvent, error)
	ReadInteropRootEventByKey(key types.InteropRootKey) (*types.InteropRootEvent, error)
	ReadInteropRootEventCount() (uint64, error)

	PersistInteropRoot(key types.InteropRootKey, root types.Hash) error
	// ReadInteropRoot returns the zero hash for a root that was never persisted
	ReadInteropRoot(key types.InteropRootKey) (types.Hash, error)

	WriteSyncState(name string, state interface{}) error
	ReadSyncState(name string, state interface{}) (bool, error)

	WriteOperation(hash types.Hash, op interface{}) error
	ReadOperation(hash types.Hash, op interface{}) (bool, error)
	ReadOperationHashes() ([]types.Hash, error)

	Close() error
}
