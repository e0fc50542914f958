package memory

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/helper/hex"
	"github.com/0xPolygon/interop-edge/storage"
)

// NewMemoryStorage creates the new storage reference with inmemory
func NewMemoryStorage(logger hclog.Logger) (storage.Storage, error) {
	db := &memoryKV{db: map[string][]byte{}}

	return storage.NewKeyValueStorage(logger, db), nil
}

// memoryKV is an in memory implementation of the kv storage
type memoryKV struct {
	lock sync.RWMutex
	db   map[string][]byte
}

func (m *memoryKV) Set(p []byte, v []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.db[hex.EncodeToHex(p)] = append([]byte(nil), v...)

	return nil
}

func (m *memoryKV) Get(p []byte) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.db[hex.EncodeToHex(p)]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), v...), true, nil
}

func (m *memoryKV) NewBatch() storage.Batch {
	return &memoryBatch{db: m}
}

func (m *memoryKV) Close() error {
	return nil
}

type memoryBatch struct {
	db     *memoryKV
	keys   []string
	values [][]byte
}

func (b *memoryBatch) Put(k []byte, v []byte) {
	b.keys = append(b.keys, hex.EncodeToHex(k))
	b.values = append(b.values, append([]byte(nil), v...))
}

func (b *memoryBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	for i, k := range b.keys {
		b.db.db[k] = b.values[i]
	}

	return nil
}
