package leveldb

import (
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/0xPolygon/interop-edge/storage"
)

const (
	// minCache is the minimum memory allocate to leveldb
	// half write, half read
	minCache = 16 // 16 MiB

	// minHandles is the minimum number of files handles to leveldb open files
	minHandles = 16

	DefaultCache               = 1024 // 1 GiB
	DefaultHandles             = 512  // files handles to leveldb open files
	DefaultBloomKeyBits        = 2048 // bloom filter bits (256 bytes)
	DefaultCompactionTableSize = 4    // 4  MiB
	DefaultCompactionTotalSize = 40   // 40 MiB
	DefaultNoSync              = false
)

// Options configures the leveldb engine
type Options struct {
	CacheSize           int
	Handles             int
	BloomKeyBits        int
	CompactionTableSize int
	CompactionTotalSize int
	NoSync              bool
}

// DefaultOptions returns the options used by the server
func DefaultOptions() *Options {
	return &Options{
		CacheSize:           DefaultCache,
		Handles:             DefaultHandles,
		BloomKeyBits:        DefaultBloomKeyBits,
		CompactionTableSize: DefaultCompactionTableSize,
		CompactionTotalSize: DefaultCompactionTotalSize,
		NoSync:              DefaultNoSync,
	}
}

func (o *Options) toLevelDB() *opt.Options {
	cache := o.CacheSize
	if cache < minCache {
		cache = minCache
	}

	handles := o.Handles
	if handles < minHandles {
		handles = minHandles
	}

	return &opt.Options{
		OpenFilesCacheCapacity: handles,
		Filter:                 filter.NewBloomFilter(o.BloomKeyBits),
		CompactionTableSize:    o.CompactionTableSize * opt.MiB,
		CompactionTotalSize:    o.CompactionTotalSize * opt.MiB,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		NoSync:                 o.NoSync,
	}
}

// NewLevelDBStorage creates the new storage reference with leveldb
func NewLevelDBStorage(path string, options *Options, logger hclog.Logger) (storage.Storage, error) {
	if options == nil {
		options = DefaultOptions()
	}

	db, err := leveldb.OpenFile(path, options.toLevelDB())
	if err != nil {
		return nil, err
	}

	logger.Info("leveldb storage opened", "path", path)

	return storage.NewKeyValueStorage(logger.Named("leveldb"), &levelDBKV{db: db}), nil
}

// NewMemoryLevelDBStorage creates a leveldb backed storage kept in memory, used by tests and devnets
func NewMemoryLevelDBStorage(logger hclog.Logger) (storage.Storage, error) {
	db, err := leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return storage.NewKeyValueStorage(logger, &levelDBKV{db: db}), nil
}

// levelDBKV is the leveldb implementation of the kv storage
type levelDBKV struct {
	db *leveldb.DB
}

// Set sets the key-value pair in leveldb storage
func (l *levelDBKV) Set(p []byte, v []byte) error {
	return l.db.Put(p, v, nil)
}

// Get retrieves the key-value pair in leveldb storage
func (l *levelDBKV) Get(p []byte) ([]byte, bool, error) {
	data, err := l.db.Get(p, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return data, true, nil
}

// NewBatch creates a leveldb write batch
func (l *levelDBKV) NewBatch() storage.Batch {
	return &batchLevelDB{db: l.db, b: new(leveldb.Batch)}
}

// Close closes the leveldb storage instance
func (l *levelDBKV) Close() error {
	return l.db.Close()
}

type batchLevelDB struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batchLevelDB) Put(k []byte, v []byte) {
	b.b.Put(k, v)
}

func (b *batchLevelDB) Write() error {
	return b.db.Write(b.b, nil)
}
