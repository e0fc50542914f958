package leveldb

import (
	"os"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

func newStorage(t *testing.T) (storage.Storage, func()) {
	t.Helper()

	path, err := os.MkdirTemp("", "interop_storage")
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.CacheSize = 16
	opts.Handles = 16

	s, err := NewLevelDBStorage(path, opts, hclog.NewNullLogger())
	if err != nil {
		t.Fatal(err)
	}

	closeFn := func() {
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}

		if err := os.RemoveAll(path); err != nil {
			t.Fatal(err)
		}
	}

	return s, closeFn
}

func TestMain(m *testing.M) {
	// the memtable pool drainer outlives Close by up to a second
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/syndtr/goleveldb/leveldb.(*DB).mpoolDrain"))
}

func TestStorage(t *testing.T) {
	storage.TestStorage(t, newStorage)
}

func TestMemoryLevelDB(t *testing.T) {
	s, err := NewMemoryLevelDBStorage(hclog.NewNullLogger())
	require.NoError(t, err)

	defer s.Close()

	key := types.InteropRootKey{SourceChainID: 1, BatchNumber: 2}
	require.NoError(t, s.PersistInteropRoot(key, types.StringToHash("0x1")))

	root, err := s.ReadInteropRoot(key)
	require.NoError(t, err)
	require.Equal(t, types.StringToHash("0x1"), root)
}

func TestReopen(t *testing.T) {
	path := t.TempDir()

	s, err := NewLevelDBStorage(path, nil, hclog.NewNullLogger())
	require.NoError(t, err)

	frontier := &types.Frontier{Size: 1, Branch: []types.Hash{types.StringToHash("0xaa")}}
	require.NoError(t, s.WriteChainRoot(5, 0, types.StringToHash("0xaa"), []types.Hash{}, frontier))
	require.NoError(t, s.Close())

	s, err = NewLevelDBStorage(path, nil, hclog.NewNullLogger())
	require.NoError(t, err)

	defer s.Close()

	restored, err := s.ReadFrontier(5)
	require.NoError(t, err)
	require.Equal(t, frontier, restored)
}
