package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/types"
)

/*
Key layout

BATCH            chainID | number      -> batch (rlp)
LOCAL_PATH       chainID | number      -> batch to chain root siblings (rlp)
GLOBAL_PATH      chainID | number      -> chain root to network root path (rlp)
BLOCK_MARKER     chainID | block       -> roots assigned marker
TX_LOOKUP        txHash                -> message reference (rlp)
CHAIN_ROOT       chainID | height      -> chain root
FRONTIER         chainID               -> accumulator frontier (rlp)
PUBLICATION      chainID | number      -> publication (rlp)
PUB_COUNT        chainID               -> number of publications of the chain
PENDING          -                     -> pending publications (rlp)
SETTLEMENT       number                -> settlement block (rlp)
HEAD             SEALED / FINALIZED / EVENTS
EVENT            seq                   -> interop root event (rlp)
EVENT_INDEX      source | number       -> seq
INTEROP_ROOT     source | number       -> interop root
SYNC_STATE       name                  -> sync state (json)
OPERATION        hash                  -> operation (json)
OPERATION_INDEX  -                     -> operation hashes (rlp)
*/

var (
	BATCH           = []byte("b")
	LOCAL_PATH      = []byte("p")
	GLOBAL_PATH     = []byte("g")
	BLOCK_MARKER    = []byte("m")
	TX_LOOKUP       = []byte("l")
	CHAIN_ROOT      = []byte("r")
	FRONTIER        = []byte("f")
	PUBLICATION     = []byte("u")
	PUB_COUNT       = []byte("c")
	PENDING         = []byte("q")
	SETTLEMENT      = []byte("s")
	HEAD            = []byte("h")
	EVENT           = []byte("e")
	EVENT_INDEX     = []byte("k")
	INTEROP_ROOT    = []byte("i")
	SYNC_STATE      = []byte("y")
	OPERATION       = []byte("o")
	OPERATION_INDEX = []byte("x")
)

// sub-prefix

var (
	SEALED    = []byte("sealed")
	FINALIZED = []byte("finalized")
	EVENTS    = []byte("events")
	EMPTY     = []byte("empty")
)

// KV is a key value storage interface
type KV interface {
	Close() error
	Set(p []byte, v []byte) error
	Get(p []byte) ([]byte, bool, error)
	NewBatch() Batch
}

// Batch is a set of writes applied atomically
type Batch interface {
	Put(k []byte, v []byte)
	Write() error
}

// KeyValueStorage is a generic storage for kv databases
type KeyValueStorage struct {
	logger hclog.Logger
	db     KV

	// lock serializes read-check-write sequences (write once columns, counters)
	lock sync.Mutex
}

func NewKeyValueStorage(logger hclog.Logger, db KV) Storage {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &KeyValueStorage{logger: logger, db: db}
}

func key(parts ...[]byte) []byte {
	var k []byte
	for _, p := range parts {
		k = append(k, p...)
	}

	return k
}

func chainKey(chainID, number uint64) []byte {
	return key(common.EncodeUint64ToBytes(chainID), common.EncodeUint64ToBytes(number))
}

func interopKey(k types.InteropRootKey) []byte {
	return chainKey(k.SourceChainID, k.BatchNumber)
}

// -- batches --

// AppendBatch implements the storage interface
func (s *KeyValueStorage) AppendBatch(batch *types.Batch, markers []types.Hash) error {
	if len(markers) != 0 && len(markers) != len(batch.Blocks) {
		return fmt.Errorf("expected %d block markers, got %d", len(batch.Blocks), len(markers))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	existing := &types.Batch{}

	found, err := s.readRLP(BATCH, chainKey(batch.ChainID, batch.Number), existing)
	if err != nil {
		return err
	}

	if found {
		if existing.Root != batch.Root {
			return fmt.Errorf("%w: batch %d of chain %d has root %s", ErrAlreadySet,
				batch.Number, batch.ChainID, existing.Root)
		}

		return nil
	}

	b := s.db.NewBatch()
	b.Put(key(BATCH, chainKey(batch.ChainID, batch.Number)), batch.MarshalRLPTo(nil))

	for i, block := range batch.Blocks {
		if len(markers) != 0 {
			b.Put(key(BLOCK_MARKER, chainKey(batch.ChainID, block.Number)), markers[i].Bytes())
		}
	}

	seen := make(map[types.Hash]struct{})

	for i, msg := range batch.Messages() {
		// a transaction emitting several messages resolves to its first one
		if _, ok := seen[msg.TxHash]; ok {
			continue
		}

		seen[msg.TxHash] = struct{}{}
		lookup := key(TX_LOOKUP, msg.TxHash.Bytes())

		ref := &types.MessageRef{ChainID: batch.ChainID, BatchNumber: batch.Number, MessageIndex: uint64(i)}
		b.Put(lookup, ref.MarshalRLPTo(nil))
	}

	return b.Write()
}

// ReadBatch implements the storage interface
func (s *KeyValueStorage) ReadBatch(chainID, number uint64) (*types.Batch, error) {
	batch := &types.Batch{}

	found, err := s.readRLP(BATCH, chainKey(chainID, number), batch)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: batch %d of chain %d", ErrNotFound, number, chainID)
	}

	if batch.LocalMerklePath, err = s.ReadLocalMerklePath(chainID, number); err != nil && !isNotFound(err) {
		return nil, err
	}

	if batch.GlobalMerklePath, err = s.ReadGlobalMerklePath(chainID, number); err != nil && !isNotFound(err) {
		return nil, err
	}

	return batch, nil
}

// WriteLocalMerklePath implements the storage interface
func (s *KeyValueStorage) WriteLocalMerklePath(chainID, number uint64, path []types.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.writeLocalPath(s.db.NewBatch(), chainID, number, path, true)
}

func (s *KeyValueStorage) writeLocalPath(b Batch, chainID, number uint64, path []types.Hash, commit bool) error {
	existing := types.MerklePath{}

	found, err := s.readRLP(LOCAL_PATH, chainKey(chainID, number), &existing)
	if err != nil {
		return err
	}

	if found {
		if !types.HashesEqual(existing, path) {
			return fmt.Errorf("%w: local path of batch %d of chain %d", ErrAlreadySet, number, chainID)
		}

		return nil
	}

	mp := types.MerklePath(path)
	b.Put(key(LOCAL_PATH, chainKey(chainID, number)), mp.MarshalRLPTo(nil))

	if commit {
		return b.Write()
	}

	return nil
}

// ReadLocalMerklePath implements the storage interface. A persisted path of a single
// batch chain is empty but non nil.
func (s *KeyValueStorage) ReadLocalMerklePath(chainID, number uint64) ([]types.Hash, error) {
	path := types.MerklePath{}

	found, err := s.readRLP(LOCAL_PATH, chainKey(chainID, number), &path)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: local path of batch %d of chain %d", ErrNotFound, number, chainID)
	}

	if path == nil {
		path = types.MerklePath{}
	}

	return path, nil
}

// WriteGlobalMerklePath implements the storage interface
func (s *KeyValueStorage) WriteGlobalMerklePath(chainID, number uint64, path *types.GlobalPath) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	b := s.db.NewBatch()
	if err := s.writeGlobalPath(b, chainID, number, path); err != nil {
		return err
	}

	return b.Write()
}

func (s *KeyValueStorage) writeGlobalPath(b Batch, chainID, number uint64, path *types.GlobalPath) error {
	existing := &types.GlobalPath{}

	found, err := s.readRLP(GLOBAL_PATH, chainKey(chainID, number), existing)
	if err != nil {
		return err
	}

	if found {
		if !existing.Equal(path) {
			return fmt.Errorf("%w: global path of batch %d of chain %d", ErrAlreadySet, number, chainID)
		}

		return nil
	}

	b.Put(key(GLOBAL_PATH, chainKey(chainID, number)), path.MarshalRLPTo(nil))

	return nil
}

// ReadGlobalMerklePath implements the storage interface
func (s *KeyValueStorage) ReadGlobalMerklePath(chainID, number uint64) (*types.GlobalPath, error) {
	path := &types.GlobalPath{}

	found, err := s.readRLP(GLOBAL_PATH, chainKey(chainID, number), path)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: global path of batch %d of chain %d", ErrNotFound, number, chainID)
	}

	return path, nil
}

// ReadTxLookup implements the storage interface
func (s *KeyValueStorage) ReadTxLookup(txHash types.Hash) (*types.MessageRef, error) {
	ref := &types.MessageRef{}

	found, err := s.readRLP(TX_LOOKUP, txHash.Bytes(), ref)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, txHash)
	}

	return ref, nil
}

// ReadBlockMarker implements the storage interface
func (s *KeyValueStorage) ReadBlockMarker(chainID, blockNumber uint64) (types.Hash, error) {
	return s.readHash(BLOCK_MARKER, chainKey(chainID, blockNumber), "block marker")
}

// -- chain roots --

// WriteChainRoot implements the storage interface
func (s *KeyValueStorage) WriteChainRoot(chainID, height uint64, root types.Hash,
	localPath []types.Hash, frontier *types.Frontier) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	existing, err := s.readHash(CHAIN_ROOT, chainKey(chainID, height), "chain root")
	if err == nil {
		if existing != root {
			return fmt.Errorf("%w: chain root of chain %d at height %d", ErrAlreadySet, chainID, height)
		}

		return nil
	} else if !isNotFound(err) {
		return err
	}

	b := s.db.NewBatch()
	b.Put(key(CHAIN_ROOT, chainKey(chainID, height)), root.Bytes())
	b.Put(key(FRONTIER, common.EncodeUint64ToBytes(chainID)), frontier.MarshalRLPTo(nil))

	if err := s.writeLocalPath(b, chainID, height, localPath, false); err != nil {
		return err
	}

	return b.Write()
}

// ReadChainRoot implements the storage interface
func (s *KeyValueStorage) ReadChainRoot(chainID, height uint64) (types.Hash, error) {
	return s.readHash(CHAIN_ROOT, chainKey(chainID, height), "chain root")
}

// ReadFrontier implements the storage interface
func (s *KeyValueStorage) ReadFrontier(chainID uint64) (*types.Frontier, error) {
	frontier := &types.Frontier{}

	found, err := s.readRLP(FRONTIER, common.EncodeUint64ToBytes(chainID), frontier)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: frontier of chain %d", ErrNotFound, chainID)
	}

	return frontier, nil
}

// -- settlement layer --

// WritePublication implements the storage interface
func (s *KeyValueStorage) WritePublication(pub *types.Publication, pending types.Publications) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	count, err := s.readUint(PUB_COUNT, common.EncodeUint64ToBytes(pub.ChainID))
	if err != nil {
		return err
	}

	if pub.BatchNumber != count {
		return fmt.Errorf("publication %d of chain %d out of order, expected %d", pub.BatchNumber, pub.ChainID, count)
	}

	b := s.db.NewBatch()
	b.Put(key(PUBLICATION, chainKey(pub.ChainID, pub.BatchNumber)), pub.MarshalRLPTo(nil))
	b.Put(key(PUB_COUNT, common.EncodeUint64ToBytes(pub.ChainID)), common.EncodeUint64ToBytes(count+1))
	b.Put(key(PENDING, EMPTY), pending.MarshalRLPTo(nil))

	return b.Write()
}

// ReadPublication implements the storage interface
func (s *KeyValueStorage) ReadPublication(chainID, batchNumber uint64) (*types.Publication, error) {
	pub := &types.Publication{}

	found, err := s.readRLP(PUBLICATION, chainKey(chainID, batchNumber), pub)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: publication %d of chain %d", ErrNotFound, batchNumber, chainID)
	}

	return pub, nil
}

// ReadPublicationCount implements the storage interface
func (s *KeyValueStorage) ReadPublicationCount(chainID uint64) (uint64, error) {
	return s.readUint(PUB_COUNT, common.EncodeUint64ToBytes(chainID))
}

// ReadPendingPublications implements the storage interface
func (s *KeyValueStorage) ReadPendingPublications() (types.Publications, error) {
	pending := types.Publications{}

	if _, err := s.readRLP(PENDING, EMPTY, &pending); err != nil {
		return nil, err
	}

	return pending, nil
}

// SealSettlementBlock implements the storage interface
func (s *KeyValueStorage) SealSettlementBlock(block *types.SettlementBlock) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	sealed, err := s.readUint(HEAD, SEALED)
	if err != nil {
		return err
	}

	if block.Number != sealed+1 {
		return fmt.Errorf("settlement block %d out of order, expected %d", block.Number, sealed+1)
	}

	empty := types.Publications{}

	b := s.db.NewBatch()
	b.Put(key(SETTLEMENT, common.EncodeUint64ToBytes(block.Number)), block.MarshalRLPTo(nil))
	b.Put(key(HEAD, SEALED), common.EncodeUint64ToBytes(block.Number))
	b.Put(key(PENDING, EMPTY), empty.MarshalRLPTo(nil))

	return b.Write()
}

// FinalizeSettlementBlock implements the storage interface
func (s *KeyValueStorage) FinalizeSettlementBlock(block *types.SettlementBlock, paths []*types.GlobalPath,
	events []*types.InteropRootEvent) error {
	if len(paths) != len(block.Leaves) {
		return fmt.Errorf("expected %d global paths, got %d", len(block.Leaves), len(paths))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	finalized, err := s.readUint(HEAD, FINALIZED)
	if err != nil {
		return err
	}

	if block.Number != finalized+1 {
		return fmt.Errorf("settlement block %d finalized out of order, expected %d", block.Number, finalized+1)
	}

	count, err := s.readUint(HEAD, EVENTS)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	b.Put(key(SETTLEMENT, common.EncodeUint64ToBytes(block.Number)), block.MarshalRLPTo(nil))
	b.Put(key(HEAD, FINALIZED), common.EncodeUint64ToBytes(block.Number))

	for i, leaf := range block.Leaves {
		if err := s.writeGlobalPath(b, leaf.ChainID, leaf.BatchNumber, paths[i]); err != nil {
			return err
		}
	}

	for _, event := range events {
		if event.Seq != count {
			return fmt.Errorf("interop root event %d out of order, expected %d", event.Seq, count)
		}

		b.Put(key(EVENT, common.EncodeUint64ToBytes(event.Seq)), event.MarshalRLPTo(nil))
		b.Put(key(EVENT_INDEX, interopKey(event.Key)), common.EncodeUint64ToBytes(event.Seq))
		count++
	}

	b.Put(key(HEAD, EVENTS), common.EncodeUint64ToBytes(count))

	return b.Write()
}

// ReadSettlementBlock implements the storage interface
func (s *KeyValueStorage) ReadSettlementBlock(number uint64) (*types.SettlementBlock, error) {
	block := &types.SettlementBlock{}

	found, err := s.readRLP(SETTLEMENT, common.EncodeUint64ToBytes(number), block)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: settlement block %d", ErrNotFound, number)
	}

	return block, nil
}

// ReadSettlementHead implements the storage interface
func (s *KeyValueStorage) ReadSettlementHead() (uint64, uint64, error) {
	sealed, err := s.readUint(HEAD, SEALED)
	if err != nil {
		return 0, 0, err
	}

	finalized, err := s.readUint(HEAD, FINALIZED)
	if err != nil {
		return 0, 0, err
	}

	return sealed, finalized, nil
}

// ReadInteropRootEvent implements the storage interface
func (s *KeyValueStorage) ReadInteropRootEvent(seq uint64) (*types.InteropRootEvent, error) {
	event := &types.InteropRootEvent{}

	found, err := s.readRLP(EVENT, common.EncodeUint64ToBytes(seq), event)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: interop root event %d", ErrNotFound, seq)
	}

	return event, nil
}

// ReadInteropRootEventByKey implements the storage interface
func (s *KeyValueStorage) ReadInteropRootEventByKey(k types.InteropRootKey) (*types.InteropRootEvent, error) {
	data, ok, err := s.db.Get(key(EVENT_INDEX, interopKey(k)))
	if err != nil {
		return nil, err
	}

	if !ok || len(data) != 8 {
		return nil, fmt.Errorf("%w: interop root event %s", ErrNotFound, k)
	}

	return s.ReadInteropRootEvent(common.EncodeBytesToUint64(data))
}

// ReadInteropRootEventCount implements the storage interface
func (s *KeyValueStorage) ReadInteropRootEventCount() (uint64, error) {
	return s.readUint(HEAD, EVENTS)
}

// -- interop roots --

// PersistInteropRoot implements the storage interface. The caller is responsible
// for the write once semantics of the key.
func (s *KeyValueStorage) PersistInteropRoot(k types.InteropRootKey, root types.Hash) error {
	return s.db.Set(key(INTEROP_ROOT, interopKey(k)), root.Bytes())
}

// ReadInteropRoot implements the storage interface
func (s *KeyValueStorage) ReadInteropRoot(k types.InteropRootKey) (types.Hash, error) {
	root, err := s.readHash(INTEROP_ROOT, interopKey(k), "interop root")
	if isNotFound(err) {
		return types.ZeroHash, nil
	}

	return root, err
}

// -- json values --

// WriteSyncState implements the storage interface
func (s *KeyValueStorage) WriteSyncState(name string, state interface{}) error {
	return s.writeJSON(SYNC_STATE, []byte(name), state)
}

// ReadSyncState implements the storage interface
func (s *KeyValueStorage) ReadSyncState(name string, state interface{}) (bool, error) {
	return s.readJSON(SYNC_STATE, []byte(name), state)
}

// WriteOperation implements the storage interface
func (s *KeyValueStorage) WriteOperation(hash types.Hash, op interface{}) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	b := s.db.NewBatch()
	b.Put(key(OPERATION, hash.Bytes()), raw)

	if _, ok, err := s.db.Get(key(OPERATION, hash.Bytes())); err != nil {
		return err
	} else if !ok {
		index := types.MerklePath{}
		if _, err := s.readRLP(OPERATION_INDEX, EMPTY, &index); err != nil {
			return err
		}

		index = append(index, hash)
		b.Put(key(OPERATION_INDEX, EMPTY), index.MarshalRLPTo(nil))
	}

	return b.Write()
}

// ReadOperation implements the storage interface
func (s *KeyValueStorage) ReadOperation(hash types.Hash, op interface{}) (bool, error) {
	return s.readJSON(OPERATION, hash.Bytes(), op)
}

// ReadOperationHashes implements the storage interface
func (s *KeyValueStorage) ReadOperationHashes() ([]types.Hash, error) {
	index := types.MerklePath{}
	if _, err := s.readRLP(OPERATION_INDEX, EMPTY, &index); err != nil {
		return nil, err
	}

	return index, nil
}

// -- helpers --

func (s *KeyValueStorage) readRLP(p, k []byte, obj types.RLPUnmarshaler) (bool, error) {
	data, ok, err := s.db.Get(key(p, k))
	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	if err := obj.UnmarshalRLP(data); err != nil {
		return false, err
	}

	return true, nil
}

func (s *KeyValueStorage) readHash(p, k []byte, what string) (types.Hash, error) {
	data, ok, err := s.db.Get(key(p, k))
	if err != nil {
		return types.ZeroHash, err
	}

	if !ok {
		return types.ZeroHash, fmt.Errorf("%w: %s", ErrNotFound, what)
	}

	if len(data) != types.HashLength {
		return types.ZeroHash, fmt.Errorf("corrupted %s, length %d", what, len(data))
	}

	return types.BytesToHash(data), nil
}

// readUint reads a big endian counter, zero when absent
func (s *KeyValueStorage) readUint(p, k []byte) (uint64, error) {
	data, ok, err := s.db.Get(key(p, k))
	if err != nil {
		return 0, err
	}

	if !ok {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted counter, length %d", len(data))
	}

	return common.EncodeBytesToUint64(data), nil
}

func (s *KeyValueStorage) writeJSON(p, k []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Set(key(p, k), raw)
}

func (s *KeyValueStorage) readJSON(p, k []byte, v interface{}) (bool, error) {
	data, ok, err := s.db.Get(key(p, k))
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}

	return true, nil
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// Close closes the connection with the db
func (s *KeyValueStorage) Close() error {
	s.logger.Debug("closing storage")

	return s.db.Close()
}
