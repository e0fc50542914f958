package interop

import (
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/memory"
	"github.com/0xPolygon/interop-edge/types"
)

func newTestStore(t *testing.T, chainID uint64) (*Store, storage.Storage) {
	t.Helper()

	db, err := memory.NewMemoryStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	store, err := NewStore(chainID, db, hclog.NewNullLogger())
	require.NoError(t, err)

	return store, db
}

func testRoot(n uint64) types.Hash {
	return crypto.Keccak256Hash([]byte("root"), common.EncodeUint64ToBytes(n))
}

func TestStore_GetUndelivered(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, 270)

	assert.Equal(t, types.ZeroHash, store.Get(types.InteropRootKey{SourceChainID: 271, BatchNumber: 9}))
}

func TestStore_SetIdempotent(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t, 270)
	key := types.InteropRootKey{SourceChainID: 271, BatchNumber: 1}

	require.NoError(t, store.Set(key, testRoot(1)))
	require.NoError(t, store.Set(key, testRoot(1)))

	assert.Equal(t, testRoot(1), store.Get(key))

	persisted, err := db.ReadInteropRoot(key)
	require.NoError(t, err)
	assert.Equal(t, testRoot(1), persisted)
}

func TestStore_SetZeroRoot(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, 270)

	err := store.Set(types.InteropRootKey{SourceChainID: 271}, types.ZeroHash)
	require.ErrorIs(t, err, ErrZeroRoot)
}

func TestStore_Conflict(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, 270)
	key := types.InteropRootKey{SourceChainID: 271, BatchNumber: 4}

	require.NoError(t, store.Set(key, testRoot(1)))

	err := store.Set(key, testRoot(2))
	require.ErrorIs(t, err, ErrRootConflict)

	var conflict *RootConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, key, conflict.Key)
	assert.Equal(t, testRoot(1), conflict.Existing)
	assert.Equal(t, testRoot(2), conflict.Incoming)

	// the first value stays
	assert.Equal(t, testRoot(1), store.Get(key))
}

func TestStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, 270)
	key := types.InteropRootKey{SourceChainID: 271, BatchNumber: 7}

	const writers = 32

	var (
		wg        sync.WaitGroup
		lock      sync.Mutex
		succeeded []types.Hash
		conflicts int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(i uint64) {
			defer wg.Done()

			root := testRoot(i % 2)

			err := store.Set(key, root)

			lock.Lock()
			defer lock.Unlock()

			if err == nil {
				succeeded = append(succeeded, root)
			} else if errors.Is(err, ErrRootConflict) {
				conflicts++
			}
		}(uint64(i))
	}

	wg.Wait()

	// every successful writer wrote the same value, every other one got a conflict
	require.NotEmpty(t, succeeded)
	for _, root := range succeeded {
		assert.Equal(t, succeeded[0], root)
	}

	assert.Equal(t, writers, len(succeeded)+conflicts)
	assert.Equal(t, succeeded[0], store.Get(key))
}
