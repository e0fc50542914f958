package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/storage"
)

func newStorage(t *testing.T) (storage.Storage, func()) {
	t.Helper()

	s, err := NewBoltDBStorage(filepath.Join(t.TempDir(), "interop.db"), hclog.NewNullLogger())
	if err != nil {
		t.Fatal(err)
	}

	closeFn := func() {
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}

	return s, closeFn
}

func TestStorage(t *testing.T) {
	t.Parallel()

	storage.TestStorage(t, newStorage)
}
