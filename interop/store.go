package interop

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

const (
	// lockShards is the number of stripes serializing writers per key
	lockShards = 64

	defaultCacheSize = 1024
)

var (
	// ErrRootConflict is a fatal consistency violation: two different non zero roots for one key
	ErrRootConflict = errors.New("interop root conflict")
	// ErrZeroRoot is returned when setting the zero hash, which means "not delivered"
	ErrZeroRoot = errors.New("zero interop root")
)

// RootConflictError describes a conflicting write of an interop root
type RootConflictError struct {
	Key      types.InteropRootKey
	Existing types.Hash
	Incoming types.Hash
}

func (e *RootConflictError) Error() string {
	return fmt.Sprintf("%s: key %s holds %s, got %s", ErrRootConflict, e.Key, e.Existing, e.Incoming)
}

func (e *RootConflictError) Unwrap() error {
	return ErrRootConflict
}

// Store is the interop root store of a destination chain: a monotone map from
// (source chain, batch number) to a root, zero until delivered and immutable afterwards.
// Reads never block on writers; writers of the same key are serialized.
type Store struct {
	chainID uint64
	logger  hclog.Logger
	storage storage.Storage

	locks [lockShards]sync.Mutex
	// delivered holds roots already persisted, they never change
	delivered *lru.Cache
}

// NewStore creates the interop root store of the destination chain chainID
func NewStore(chainID uint64, store storage.Storage, logger hclog.Logger) (*Store, error) {
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		chainID:   chainID,
		logger:    logger.Named("interop_store").With("chain", chainID),
		storage:   store,
		delivered: cache,
	}, nil
}

// Get returns the root for key, the zero hash while it has not been delivered.
// It never fails: a storage error is logged and reported as "not delivered yet".
func (s *Store) Get(key types.InteropRootKey) types.Hash {
	if cached, ok := s.delivered.Get(key); ok {
		if root, ok := cached.(types.Hash); ok {
			return root
		}
	}

	root, err := s.storage.ReadInteropRoot(key)
	if err != nil {
		s.logger.Warn("failed to read interop root", "key", key, "err", err)

		return types.ZeroHash
	}

	if root != types.ZeroHash {
		s.delivered.Add(key, root)
	}

	return root
}

// Set delivers the root of key. Setting the stored value again is a no-op, setting a
// different value returns a *RootConflictError.
func (s *Store) Set(key types.InteropRootKey, root types.Hash) error {
	if root == types.ZeroHash {
		return fmt.Errorf("%w: key %s", ErrZeroRoot, key)
	}

	lock := &s.locks[shard(key)]
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.storage.ReadInteropRoot(key)
	if err != nil {
		return err
	}

	if existing == root {
		return nil
	}

	if existing != types.ZeroHash {
		metrics.IncrCounterWithLabels([]string{"interop", "root_conflicts"}, 1,
			[]metrics.Label{{Name: "chain_id", Value: strconv.FormatUint(s.chainID, 10)}})
		s.logger.Error("interop root conflict", "key", key, "existing", existing, "incoming", root)

		return &RootConflictError{Key: key, Existing: existing, Incoming: root}
	}

	if err := s.storage.PersistInteropRoot(key, root); err != nil {
		return err
	}

	s.delivered.Add(key, root)

	metrics.IncrCounterWithLabels([]string{"interop", "roots_mirrored"}, 1,
		[]metrics.Label{{Name: "chain_id", Value: strconv.FormatUint(s.chainID, 10)}})
	s.logger.Debug("interop root delivered", "key", key, "root", root)

	return nil
}

// ChainID returns the destination chain of the store
func (s *Store) ChainID() uint64 {
	return s.chainID
}

func shard(key types.InteropRootKey) uint64 {
	h := key.SourceChainID*0x9e3779b97f4a7c15 ^ key.BatchNumber

	return h % lockShards
}
