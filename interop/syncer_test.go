package interop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/aggregator"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/memory"
	"github.com/0xPolygon/interop-edge/types"
)

const (
	testSettlementChainID = 505
	testChainID           = 270
)

// eventLog is an in memory interop root log
type eventLog struct {
	lock   sync.Mutex
	events []*types.InteropRootEvent
	err    error
}

func (l *eventLog) add(source, batch uint64, root types.Hash) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.events = append(l.events, &types.InteropRootEvent{
		Seq:  uint64(len(l.events)),
		Key:  types.InteropRootKey{SourceChainID: source, BatchNumber: batch},
		Root: root,
	})
}

func (l *eventLog) InteropRootEvents(fromSeq uint64, limit int) ([]*types.InteropRootEvent, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.err != nil {
		return nil, l.err
	}

	var result []*types.InteropRootEvent

	for seq := fromSeq; seq < uint64(len(l.events)) && len(result) < limit; seq++ {
		result = append(result, l.events[seq])
	}

	return result, nil
}

func newTestSyncer(t *testing.T, source EventSource, db storage.Storage) (*Syncer, *Store) {
	t.Helper()

	if db == nil {
		var err error

		db, err = memory.NewMemoryStorage(hclog.NewNullLogger())
		require.NoError(t, err)
	}

	store, err := NewStore(testChainID, db, hclog.NewNullLogger())
	require.NoError(t, err)

	syncer, err := NewSyncer(store, source, db, &SyncerConfig{
		SettlementChainID: testSettlementChainID,
		BatchSize:         2,
		PollInterval:      5 * time.Millisecond,
	}, hclog.NewNullLogger())
	require.NoError(t, err)

	return syncer, store
}

func TestSyncer_MirrorsAndSkips(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	log.add(271, 0, testRoot(1))
	log.add(testChainID, 0, testRoot(2))           // own root
	log.add(testSettlementChainID, 0, testRoot(3)) // settlement layer root
	log.add(272, 5, testRoot(4))

	syncer, store := newTestSyncer(t, log, nil)

	total := 0

	for syncer.Cursor() < 4 {
		n, err := syncer.SyncOnce()
		require.NoError(t, err)

		total += n
	}

	assert.Equal(t, 2, total)
	assert.Equal(t, testRoot(1), store.Get(types.InteropRootKey{SourceChainID: 271, BatchNumber: 0}))
	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: testChainID, BatchNumber: 0}))
	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: testSettlementChainID}))
	assert.Equal(t, testRoot(4), store.Get(types.InteropRootKey{SourceChainID: 272, BatchNumber: 5}))

	unassigned := syncer.Unassigned()
	require.Len(t, unassigned, 2)
	assert.Equal(t, uint64(271), unassigned[0].Key.SourceChainID)
	assert.Equal(t, testRoot(4), unassigned[1].Root)

	require.NoError(t, syncer.MarkAssigned(unassigned[:1]))
	assert.Equal(t, unassigned[1:], syncer.Unassigned())

	// nothing new
	n, err := syncer.SyncOnce()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncer_SourceError(t *testing.T) {
	t.Parallel()

	log := &eventLog{err: errors.New("unavailable")}
	syncer, _ := newTestSyncer(t, log, nil)

	_, err := syncer.SyncOnce()
	require.Error(t, err)
	assert.Zero(t, syncer.Cursor())
}

func TestSyncer_ResumesFromCursor(t *testing.T) {
	t.Parallel()

	db, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	log := &eventLog{}
	log.add(271, 0, testRoot(1))
	log.add(271, 1, testRoot(2))

	syncer, _ := newTestSyncer(t, log, db)

	_, err = syncer.SyncOnce()
	require.NoError(t, err)
	require.Equal(t, uint64(2), syncer.Cursor())

	log.add(271, 2, testRoot(3))

	restarted, store := newTestSyncer(t, log, db)
	assert.Equal(t, uint64(2), restarted.Cursor())

	n, err := restarted.SyncOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, testRoot(3), store.Get(types.InteropRootKey{SourceChainID: 271, BatchNumber: 2}))
}

func TestSyncer_UnassignedRootsSurviveRestart(t *testing.T) {
	t.Parallel()

	db, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	log := &eventLog{}
	log.add(271, 0, testRoot(1))
	log.add(272, 0, testRoot(2))

	syncer, _ := newTestSyncer(t, log, db)

	n, err := syncer.SyncOnce()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// the node stops before any block carrying the roots is stored
	restarted, store := newTestSyncer(t, log, db)
	assert.Equal(t, testRoot(1), store.Get(types.InteropRootKey{SourceChainID: 271}))

	unassigned := restarted.Unassigned()
	require.Len(t, unassigned, 2)
	assert.Equal(t, testRoot(1), unassigned[0].Root)
	assert.Equal(t, testRoot(2), unassigned[1].Root)

	// assigning twice, as a replay of stored batches does, is harmless
	require.NoError(t, restarted.MarkAssigned(unassigned))
	require.NoError(t, restarted.MarkAssigned(unassigned))

	again, _ := newTestSyncer(t, log, db)
	assert.Empty(t, again.Unassigned())
}

func TestSyncer_ResumeWithMissingHeldEvent(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	log.add(271, 0, testRoot(1))
	log.add(271, 0, testRoot(9))
	log.add(271, 1, testRoot(2))

	syncer, _ := newTestSyncer(t, log, nil)

	_, err := syncer.SyncOnce()
	require.ErrorIs(t, err, ErrRootConflict)

	_, err = syncer.SyncOnce()
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, syncer.Halted()[271].Held)

	log.lock.Lock()
	log.events = log.events[:2]
	log.lock.Unlock()

	err = syncer.Resume(271)
	require.ErrorIs(t, err, errHeldEventMissing)
	assert.NotContains(t, err.Error(), "%!w")
	assert.Equal(t, []uint64{2}, syncer.Halted()[271].Held)
}

func TestSyncer_ConflictHaltsSource(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	log.add(271, 0, testRoot(1))
	log.add(271, 0, testRoot(9)) // conflicting redelivery
	log.add(271, 1, testRoot(2))
	log.add(272, 0, testRoot(3))

	syncer, store := newTestSyncer(t, log, nil)

	_, err := syncer.SyncOnce()
	require.ErrorIs(t, err, ErrRootConflict)

	_, err = syncer.SyncOnce()
	require.NoError(t, err)

	halted := syncer.Halted()
	require.Contains(t, halted, uint64(271))
	assert.Equal(t, uint64(1), halted[271].Seq)
	assert.Equal(t, testRoot(1), halted[271].Existing)
	assert.Equal(t, testRoot(9), halted[271].Incoming)
	assert.Equal(t, []uint64{2}, halted[271].Held)

	// other sources keep flowing
	assert.Equal(t, testRoot(3), store.Get(types.InteropRootKey{SourceChainID: 272}))
	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: 271, BatchNumber: 1}))
	assert.Equal(t, testRoot(1), store.Get(types.InteropRootKey{SourceChainID: 271}))

	require.NoError(t, syncer.Resume(271))
	assert.Empty(t, syncer.Halted())
	assert.Equal(t, testRoot(2), store.Get(types.InteropRootKey{SourceChainID: 271, BatchNumber: 1}))
}

func TestSyncer_FromAggregator(t *testing.T) {
	t.Parallel()

	settlementDB, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	agg, err := aggregator.New(testSettlementChainID, &aggregator.Config{FinalityDepth: 0}, settlementDB,
		hclog.NewNullLogger())
	require.NoError(t, err)

	require.NoError(t, agg.Publish(271, 0, testRoot(1)))
	require.NoError(t, agg.Publish(testChainID, 0, testRoot(2)))

	block, err := agg.SealBlock()
	require.NoError(t, err)

	syncer, store := newTestSyncer(t, agg, nil)

	// nothing is visible before finality
	n, err := syncer.SyncOnce()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: 271}))

	require.NoError(t, agg.FinalizeReady())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- syncer.Run(ctx)
	}()

	syncer.Notify()

	require.Eventually(t, func() bool {
		return store.Get(types.InteropRootKey{SourceChainID: 271}) == block.NetworkRoot
	}, 2*time.Second, 5*time.Millisecond)

	// own root never delivered to the store
	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: testChainID}))

	cancel()
	require.NoError(t, <-done)
}
