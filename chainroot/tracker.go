package chainroot

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrNotYetSealed is returned for heights beyond the frontier. It is retryable.
	ErrNotYetSealed = errors.New("batch not yet sealed")
	// ErrOutOfOrder is returned when a batch is appended at a height other than the next one
	ErrOutOfOrder = errors.New("batch appended out of order")
)

func init() {
	poll.RegisterRetryable(ErrNotYetSealed)
}

// Tracker maintains the chain message root, an append-only accumulator over all batch
// roots of one chain. The leaf index of a batch is its batch number.
type Tracker struct {
	chainID uint64
	logger  hclog.Logger
	storage storage.Storage

	lock sync.RWMutex
	acc  *merkle.Accumulator
}

// NewTracker opens the tracker of a chain, restoring the accumulator frontier from storage
func NewTracker(chainID uint64, store storage.Storage, logger hclog.Logger) (*Tracker, error) {
	acc := merkle.NewAccumulator()

	frontier, err := store.ReadFrontier(chainID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to read frontier of chain %d: %w", chainID, err)
	}

	if frontier != nil {
		if acc, err = merkle.NewAccumulatorFromFrontier(frontier); err != nil {
			return nil, err
		}
	}

	t := &Tracker{
		chainID: chainID,
		logger:  logger.Named("chain_root").With("chain", chainID),
		storage: store,
		acc:     acc,
	}

	t.logger.Info("chain root tracker opened", "size", acc.Size(), "root", acc.Root())

	return t, nil
}

// Append adds the root of batch batchNumber and returns the new chain root. Heights are
// strict: batchNumber must be the current size.
func (t *Tracker) Append(batchNumber uint64, batchRoot types.Hash) (types.Hash, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if batchNumber != t.acc.Size() {
		return types.ZeroHash, fmt.Errorf("%w: got batch %d, expected %d", ErrOutOfOrder, batchNumber, t.acc.Size())
	}

	// work on a copy so a failed write leaves the in-memory frontier untouched
	next, err := merkle.NewAccumulatorFromFrontier(t.acc.Frontier())
	if err != nil {
		return types.ZeroHash, err
	}

	root, path, err := next.Append(batchRoot)
	if err != nil {
		return types.ZeroHash, err
	}

	if err := t.storage.WriteChainRoot(t.chainID, batchNumber, root, path, next.Frontier()); err != nil {
		return types.ZeroHash, fmt.Errorf("failed to persist chain root at height %d: %w", batchNumber, err)
	}

	t.acc = next

	metrics.SetGaugeWithLabels([]string{"interop", "chain_root_height"}, float32(batchNumber),
		[]metrics.Label{{Name: "chain_id", Value: strconv.FormatUint(t.chainID, 10)}})

	t.logger.Debug("batch appended", "batch", batchNumber, "batch root", batchRoot, "chain root", root)

	return root, nil
}

// GetChainRootAt returns the chain root right after batch height was appended
func (t *Tracker) GetChainRootAt(height uint64) (types.Hash, error) {
	t.lock.RLock()
	size := t.acc.Size()
	t.lock.RUnlock()

	if height >= size {
		return types.ZeroHash, fmt.Errorf("%w: height %d, frontier at %d", ErrNotYetSealed, height, size)
	}

	return t.storage.ReadChainRoot(t.chainID, height)
}

// LocalPath returns the siblings anchoring the root of batch height into the chain root at that height
func (t *Tracker) LocalPath(height uint64) ([]types.Hash, error) {
	t.lock.RLock()
	size := t.acc.Size()
	t.lock.RUnlock()

	if height >= size {
		return nil, fmt.Errorf("%w: height %d, frontier at %d", ErrNotYetSealed, height, size)
	}

	return t.storage.ReadLocalMerklePath(t.chainID, height)
}

// Size returns the number of appended batches
func (t *Tracker) Size() uint64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.acc.Size()
}

// Latest returns the current chain root
func (t *Tracker) Latest() types.Hash {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.acc.Root()
}

// ChainID returns the id of the tracked chain
func (t *Tracker) ChainID() uint64 {
	return t.chainID
}
