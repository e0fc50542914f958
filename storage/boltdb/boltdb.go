package boltdb

import (
	"time"

	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"

	"github.com/0xPolygon/interop-edge/storage"
)

var bucket = []byte("interop")

// NewBoltDBStorage creates the new storage reference with boltdb
func NewBoltDBStorage(path string, logger hclog.Logger) (storage.Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)

		return err
	}); err != nil {
		db.Close()

		return nil, err
	}

	logger.Info("boltdb storage opened", "path", path)

	return storage.NewKeyValueStorage(logger.Named("boltdb"), &boltDBKV{db: db}), nil
}

// boltDBKV is the boltdb implementation of the kv storage
type boltDBKV struct {
	db *bolt.DB
}

func (l *boltDBKV) Set(p []byte, v []byte) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(p, v)
	})
}

func (l *boltDBKV) Get(p []byte) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)

	err := l.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(p); v != nil {
			// v is only valid for the lifetime of the tx, therefore copying
			data = make([]byte, len(v))
			copy(data, v)
			found = true
		}

		return nil
	})

	return data, found, err
}

func (l *boltDBKV) NewBatch() storage.Batch {
	return &boltBatch{db: l.db}
}

func (l *boltDBKV) Close() error {
	return l.db.Close()
}

type boltBatch struct {
	db     *bolt.DB
	keys   [][]byte
	values [][]byte
}

func (b *boltBatch) Put(k []byte, v []byte) {
	b.keys = append(b.keys, k)
	b.values = append(b.values, v)
}

// Write applies every put in a single bolt transaction
func (b *boltBatch) Write() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)

		for i, k := range b.keys {
			if err := bkt.Put(k, b.values[i]); err != nil {
				return err
			}
		}

		return nil
	})
}
