package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/types"
)

type PlaceholderStorage func(t *testing.T) (Storage, func())

var (
	addr1 = types.StringToAddress("1")

	hash1 = types.StringToHash("1")
	hash2 = types.StringToHash("2")
	hash3 = types.StringToHash("3")
)

// TestStorage tests a set of tests on a storage
func TestStorage(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	t.Run("testBatch", func(t *testing.T) {
		testBatch(t, m)
	})
	t.Run("testMerklePaths", func(t *testing.T) {
		testMerklePaths(t, m)
	})
	t.Run("testChainRoot", func(t *testing.T) {
		testChainRoot(t, m)
	})
	t.Run("testSettlement", func(t *testing.T) {
		testSettlement(t, m)
	})
	t.Run("testInteropRoot", func(t *testing.T) {
		testInteropRoot(t, m)
	})
	t.Run("testOperations", func(t *testing.T) {
		testOperations(t, m)
	})
}

func testBatch(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	_, err := s.ReadBatch(1, 0)
	require.True(t, errors.Is(err, ErrNotFound))

	batch := &types.Batch{
		ChainID: 1,
		Number:  0,
		Blocks: []*types.Block{
			{Number: 1, Messages: []*types.Message{
				{Sender: addr1, Data: []byte{1}, TxHash: hash1},
				{Sender: addr1, Data: []byte{2}, TxNumberInBatch: 1, TxHash: hash2},
			}},
			{Number: 2, Messages: []*types.Message{
				// second message of the same transaction resolves to the first one
				{Sender: addr1, Data: []byte{3}, TxNumberInBatch: 1, TxHash: hash2},
			}},
		},
		Root: hash3,
	}

	require.NoError(t, s.AppendBatch(batch, []types.Hash{hash1, hash2}))

	// idempotent for the same batch, rejected for a different one
	require.NoError(t, s.AppendBatch(batch, []types.Hash{hash1, hash2}))

	other := *batch
	other.Root = hash1
	require.True(t, errors.Is(s.AppendBatch(&other, nil), ErrAlreadySet))

	read, err := s.ReadBatch(1, 0)
	require.NoError(t, err)
	assert.Equal(t, hash3, read.Root)
	assert.Len(t, read.Messages(), 3)
	assert.Nil(t, read.LocalMerklePath)
	assert.Nil(t, read.GlobalMerklePath)

	ref, err := s.ReadTxLookup(hash2)
	require.NoError(t, err)
	assert.Equal(t, &types.MessageRef{ChainID: 1, BatchNumber: 0, MessageIndex: 1}, ref)

	_, err = s.ReadTxLookup(hash3)
	require.True(t, errors.Is(err, ErrNotFound))

	marker, err := s.ReadBlockMarker(1, 2)
	require.NoError(t, err)
	assert.Equal(t, hash2, marker)
}

func testMerklePaths(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	require.NoError(t, s.AppendBatch(&types.Batch{ChainID: 2, Number: 0, Root: hash1}, nil))

	path := []types.Hash{hash1, hash2}
	require.NoError(t, s.WriteLocalMerklePath(2, 0, path))
	require.NoError(t, s.WriteLocalMerklePath(2, 0, path))
	require.True(t, errors.Is(s.WriteLocalMerklePath(2, 0, []types.Hash{hash3}), ErrAlreadySet))

	global := &types.GlobalPath{SettlementBlock: 3, LeafIndex: 1, Siblings: []types.Hash{hash3}, NetworkRoot: hash1}
	require.NoError(t, s.WriteGlobalMerklePath(2, 0, global))
	require.NoError(t, s.WriteGlobalMerklePath(2, 0, global))

	changed := *global
	changed.NetworkRoot = hash2
	require.True(t, errors.Is(s.WriteGlobalMerklePath(2, 0, &changed), ErrAlreadySet))

	batch, err := s.ReadBatch(2, 0)
	require.NoError(t, err)
	assert.Equal(t, path, batch.LocalMerklePath)
	assert.True(t, global.Equal(batch.GlobalMerklePath))
}

func testChainRoot(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	_, err := s.ReadChainRoot(3, 0)
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = s.ReadFrontier(3)
	require.True(t, errors.Is(err, ErrNotFound))

	frontier := &types.Frontier{Size: 1, Branch: []types.Hash{hash1}}
	require.NoError(t, s.WriteChainRoot(3, 0, hash1, []types.Hash{}, frontier))
	require.True(t, errors.Is(s.WriteChainRoot(3, 0, hash2, []types.Hash{}, frontier), ErrAlreadySet))

	root, err := s.ReadChainRoot(3, 0)
	require.NoError(t, err)
	assert.Equal(t, hash1, root)

	path, err := s.ReadLocalMerklePath(3, 0)
	require.NoError(t, err)
	assert.NotNil(t, path)
	assert.Empty(t, path)

	restored, err := s.ReadFrontier(3)
	require.NoError(t, err)
	assert.Equal(t, frontier, restored)
}

func testSettlement(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	pub0 := &types.Publication{ChainID: 4, BatchNumber: 0, ChainRoot: hash1}
	pub1 := &types.Publication{ChainID: 4, BatchNumber: 1, ChainRoot: hash2}

	require.NoError(t, s.WritePublication(pub0, types.Publications{pub0}))
	require.Error(t, s.WritePublication(&types.Publication{ChainID: 4, BatchNumber: 5}, nil))
	require.NoError(t, s.WritePublication(pub1, types.Publications{pub0, pub1}))

	count, err := s.ReadPublicationCount(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	pending, err := s.ReadPendingPublications()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	block := &types.SettlementBlock{Number: 1, Leaves: types.Publications{pub0, pub1}, NetworkRoot: hash3}
	require.Error(t, s.SealSettlementBlock(&types.SettlementBlock{Number: 2}))
	require.NoError(t, s.SealSettlementBlock(block))

	pending, err = s.ReadPendingPublications()
	require.NoError(t, err)
	assert.Empty(t, pending)

	sealed, finalized, err := s.ReadSettlementHead()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sealed)
	assert.Equal(t, uint64(0), finalized)

	block.Finalized = true
	paths := []*types.GlobalPath{
		{SettlementBlock: 1, LeafIndex: 0, Siblings: []types.Hash{hash2}, NetworkRoot: hash3},
		{SettlementBlock: 1, LeafIndex: 1, Siblings: []types.Hash{hash1}, NetworkRoot: hash3},
	}
	events := []*types.InteropRootEvent{
		{Seq: 0, Key: types.InteropRootKey{SourceChainID: 4, BatchNumber: 0}, Root: hash3, SettlementBlock: 1},
		{Seq: 1, Key: types.InteropRootKey{SourceChainID: 4, BatchNumber: 1}, Root: hash3, SettlementBlock: 1},
	}

	require.Error(t, s.FinalizeSettlementBlock(block, paths[:1], events))
	require.NoError(t, s.FinalizeSettlementBlock(block, paths, events))

	read, err := s.ReadSettlementBlock(1)
	require.NoError(t, err)
	assert.True(t, read.Finalized)

	_, finalized, err = s.ReadSettlementHead()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), finalized)

	count, err = s.ReadInteropRootEventCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	event, err := s.ReadInteropRootEventByKey(types.InteropRootKey{SourceChainID: 4, BatchNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, events[1], event)

	_, err = s.ReadInteropRootEvent(2)
	require.True(t, errors.Is(err, ErrNotFound))

	global, err := s.ReadGlobalMerklePath(4, 1)
	require.NoError(t, err)
	assert.True(t, paths[1].Equal(global))
}

func testInteropRoot(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	key := types.InteropRootKey{SourceChainID: 5, BatchNumber: 100}

	root, err := s.ReadInteropRoot(key)
	require.NoError(t, err)
	assert.Equal(t, types.ZeroHash, root)

	require.NoError(t, s.PersistInteropRoot(key, hash1))

	root, err = s.ReadInteropRoot(key)
	require.NoError(t, err)
	assert.Equal(t, hash1, root)

	type cursor struct {
		Next uint64 `json:"next"`
	}

	found, err := s.ReadSyncState("syncer", &cursor{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.WriteSyncState("syncer", &cursor{Next: 7}))

	c := &cursor{}
	found, err = s.ReadSyncState("syncer", c)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(7), c.Next)
}

func testOperations(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	type op struct {
		State string `json:"state"`
	}

	require.NoError(t, s.WriteOperation(hash1, &op{State: "Initiated"}))
	require.NoError(t, s.WriteOperation(hash1, &op{State: "L1Committed"}))
	require.NoError(t, s.WriteOperation(hash2, &op{State: "Initiated"}))

	read := &op{}
	found, err := s.ReadOperation(hash1, read)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "L1Committed", read.State)

	found, err = s.ReadOperation(hash3, read)
	require.NoError(t, err)
	assert.False(t, found)

	hashes, err := s.ReadOperationHashes()
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{hash1, hash2}, hashes)
}
