package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrBatchNotFinalized is returned while the settlement block including a chain root is not final.
	// It is retryable.
	ErrBatchNotFinalized = errors.New("batch not finalized on the settlement layer")
	// ErrRootConflict is returned when a chain publishes two different roots for the same batch
	ErrRootConflict = errors.New("chain root conflict")
	// ErrChainHalted is returned for publications of a chain halted by a conflict
	ErrChainHalted = errors.New("chain halted")
	// ErrOutOfOrder is returned when a chain skips a batch
	ErrOutOfOrder = errors.New("publication out of order")
)

func init() {
	poll.RegisterRetryable(ErrBatchNotFinalized)
}

// RootConflictError describes two different roots published for the same batch
type RootConflictError struct {
	ChainID     uint64
	BatchNumber uint64
	Existing    types.Hash
	Incoming    types.Hash
}

func (e *RootConflictError) Error() string {
	return fmt.Sprintf("%s: chain %d batch %d has root %s, got %s",
		ErrRootConflict, e.ChainID, e.BatchNumber, e.Existing, e.Incoming)
}

func (e *RootConflictError) Unwrap() error {
	return ErrRootConflict
}

// Config holds the aggregator parameters
type Config struct {
	// FinalityDepth is the number of settlement blocks sealed on top of a block before it is final
	FinalityDepth uint64
	// SealInterval is the period of the sealing loop
	SealInterval time.Duration
}

// DefaultConfig returns the default aggregator configuration
func DefaultConfig() *Config {
	return &Config{
		FinalityDepth: 1,
		SealInterval:  2 * time.Second,
	}
}

// NetworkLeaf returns the leaf of a chain root in the network tree: keccak(chainID (32 bytes) | chainRoot)
func NetworkLeaf(chainID uint64, chainRoot types.Hash) types.Hash {
	var id types.Hash

	copy(id[24:], common.EncodeUint64ToBytes(chainID))

	return crypto.Keccak256Hash(id.Bytes(), chainRoot.Bytes())
}

// Aggregator runs on the settlement layer. It collects the chain roots published by every
// chain, seals them into settlement blocks whose network root commits to all of them and,
// once a block is final, emits the interop roots and the global merkle paths.
type Aggregator struct {
	chainID uint64
	config  *Config
	logger  hclog.Logger
	storage storage.Storage

	lock    sync.Mutex
	pending types.Publications
	halted  map[uint64]*RootConflictError
}

// New creates the aggregator of the settlement layer chainID
func New(chainID uint64, config *Config, store storage.Storage, logger hclog.Logger) (*Aggregator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	pending, err := store.ReadPendingPublications()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending publications: %w", err)
	}

	return &Aggregator{
		chainID: chainID,
		config:  config,
		logger:  logger.Named("aggregator"),
		storage: store,
		pending: pending,
		halted:  make(map[uint64]*RootConflictError),
	}, nil
}

// ChainID returns the id of the settlement layer
func (a *Aggregator) ChainID() uint64 {
	return a.chainID
}

// Publish receives the chain root of chainID at batch height batchNumber. Delivery is at
// least once: a duplicate of an accepted publication is ignored. A different root for an
// accepted batch halts the chain until Resume is called.
func (a *Aggregator) Publish(chainID, batchNumber uint64, chainRoot types.Hash) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if conflict, ok := a.halted[chainID]; ok {
		return fmt.Errorf("%w: chain %d, %v", ErrChainHalted, chainID, conflict)
	}

	existing, err := a.storage.ReadPublication(chainID, batchNumber)
	if err == nil {
		if existing.ChainRoot == chainRoot {
			a.logger.Debug("duplicate publication ignored", "chain", chainID, "batch", batchNumber)

			return nil
		}

		conflict := &RootConflictError{
			ChainID:     chainID,
			BatchNumber: batchNumber,
			Existing:    existing.ChainRoot,
			Incoming:    chainRoot,
		}
		a.halted[chainID] = conflict

		metrics.IncrCounterWithLabels([]string{"interop", "root_conflicts"}, 1,
			[]metrics.Label{{Name: "chain_id", Value: strconv.FormatUint(chainID, 10)}})
		a.logger.Error("chain root conflict, halting chain", "chain", chainID, "batch", batchNumber,
			"existing", existing.ChainRoot, "incoming", chainRoot)

		return conflict
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	count, err := a.storage.ReadPublicationCount(chainID)
	if err != nil {
		return err
	}

	if batchNumber != count {
		return fmt.Errorf("%w: chain %d published batch %d, expected %d", ErrOutOfOrder, chainID, batchNumber, count)
	}

	pub := &types.Publication{ChainID: chainID, BatchNumber: batchNumber, ChainRoot: chainRoot}
	pending := append(append(types.Publications{}, a.pending...), pub)

	if err := a.storage.WritePublication(pub, pending); err != nil {
		return err
	}

	a.pending = pending

	a.logger.Debug("chain root published", "chain", chainID, "batch", batchNumber, "root", chainRoot)

	return nil
}

// SealBlock seals every pending publication into the next settlement block. Leaves are
// ordered by chain id then batch number. It returns nil when nothing is pending.
func (a *Aggregator) SealBlock() (*types.SettlementBlock, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if len(a.pending) == 0 {
		return nil, nil
	}

	leaves := append(types.Publications{}, a.pending...)
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].ChainID != leaves[j].ChainID {
			return leaves[i].ChainID < leaves[j].ChainID
		}

		return leaves[i].BatchNumber < leaves[j].BatchNumber
	})

	sealed, _, err := a.storage.ReadSettlementHead()
	if err != nil {
		return nil, err
	}

	block := &types.SettlementBlock{
		Number:      sealed + 1,
		Leaves:      leaves,
		NetworkRoot: networkTree(leaves).Root(),
	}

	if err := a.storage.SealSettlementBlock(block); err != nil {
		return nil, err
	}

	a.pending = nil

	metrics.SetGauge([]string{"interop", "settlement_block"}, float32(block.Number))
	a.logger.Info("settlement block sealed", "number", block.Number, "leaves", len(leaves), "root", block.NetworkRoot)

	return block, nil
}

// Finalize marks a sealed settlement block as final. Only then the global path of every
// chain root it includes is written and one interop root event per leaf is appended to
// the event log. Blocks are finalized strictly in order; finalizing a final block is a no-op.
func (a *Aggregator) Finalize(number uint64) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	block, err := a.storage.ReadSettlementBlock(number)
	if err != nil {
		return err
	}

	if block.Finalized {
		return nil
	}

	tree := networkTree(block.Leaves)
	if tree.Root() != block.NetworkRoot {
		return fmt.Errorf("settlement block %d network root mismatch", number)
	}

	eventCount, err := a.storage.ReadInteropRootEventCount()
	if err != nil {
		return err
	}

	paths := make([]*types.GlobalPath, len(block.Leaves))
	events := make([]*types.InteropRootEvent, len(block.Leaves))

	for i, leaf := range block.Leaves {
		siblings, err := tree.Proof(uint64(i))
		if err != nil {
			return err
		}

		paths[i] = &types.GlobalPath{
			SettlementBlock: number,
			LeafIndex:       uint64(i),
			Siblings:        siblings,
			NetworkRoot:     block.NetworkRoot,
		}
		events[i] = &types.InteropRootEvent{
			Seq:             eventCount + uint64(i),
			Key:             types.InteropRootKey{SourceChainID: leaf.ChainID, BatchNumber: leaf.BatchNumber},
			Root:            block.NetworkRoot,
			SettlementBlock: number,
		}
	}

	block.Finalized = true

	if err := a.storage.FinalizeSettlementBlock(block, paths, events); err != nil {
		return err
	}

	metrics.SetGauge([]string{"interop", "finalized_settlement_block"}, float32(number))
	a.logger.Info("settlement block finalized", "number", number, "interop roots", len(events))

	return nil
}

// FinalizeReady finalizes every sealed block buried under at least FinalityDepth blocks
func (a *Aggregator) FinalizeReady() error {
	sealed, finalized, err := a.storage.ReadSettlementHead()
	if err != nil {
		return err
	}

	for number := finalized + 1; number+a.config.FinalityDepth <= sealed; number++ {
		if err := a.Finalize(number); err != nil {
			return err
		}
	}

	return nil
}

// GlobalPath returns the path anchoring the chain root of chainID at batchNumber into the
// network root. ErrBatchNotFinalized is returned until its settlement block is final.
func (a *Aggregator) GlobalPath(chainID, batchNumber uint64) (*types.GlobalPath, error) {
	path, err := a.storage.ReadGlobalMerklePath(chainID, batchNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: chain %d batch %d", ErrBatchNotFinalized, chainID, batchNumber)
	}

	return path, err
}

// ComputeGlobalPath returns the network root and the siblings of the chain root of chainID at batchNumber
func (a *Aggregator) ComputeGlobalPath(chainID, batchNumber uint64) (types.Hash, []types.Hash, error) {
	path, err := a.GlobalPath(chainID, batchNumber)
	if err != nil {
		return types.ZeroHash, nil, err
	}

	return path.NetworkRoot, path.Siblings, nil
}

// InteropRootEvents returns up to limit events of the interop root log starting at fromSeq
func (a *Aggregator) InteropRootEvents(fromSeq uint64, limit int) ([]*types.InteropRootEvent, error) {
	count, err := a.storage.ReadInteropRootEventCount()
	if err != nil {
		return nil, err
	}

	var events []*types.InteropRootEvent

	for seq := fromSeq; seq < count && len(events) < limit; seq++ {
		event, err := a.storage.ReadInteropRootEvent(seq)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

// Halted returns the conflicts of halted chains
func (a *Aggregator) Halted() map[uint64]*RootConflictError {
	a.lock.Lock()
	defer a.lock.Unlock()

	result := make(map[uint64]*RootConflictError, len(a.halted))
	for chainID, conflict := range a.halted {
		result[chainID] = conflict
	}

	return result
}

// Resume lifts the halt of a chain after manual intervention. The root accepted first stays.
func (a *Aggregator) Resume(chainID uint64) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if _, ok := a.halted[chainID]; ok {
		delete(a.halted, chainID)
		a.logger.Warn("chain resumed", "chain", chainID)
	}
}

// Published returns the number of batches of chainID accepted so far
func (a *Aggregator) Published(chainID uint64) (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.storage.ReadPublicationCount(chainID)
}

// Run seals and finalizes settlement blocks until the context is done
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.config.SealInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := a.SealBlock(); err != nil {
			a.logger.Error("failed to seal settlement block", "err", err)

			continue
		}

		if err := a.FinalizeReady(); err != nil {
			a.logger.Error("failed to finalize settlement blocks", "err", err)
		}
	}
}

func networkTree(leaves types.Publications) *merkle.Tree {
	hashes := make([]types.Hash, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = NetworkLeaf(leaf.ChainID, leaf.ChainRoot)
	}

	return merkle.NewTree(hashes)
}
