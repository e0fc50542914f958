package server

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/devnet"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/boltdb"
	"github.com/0xPolygon/interop-edge/storage/leveldb"
	"github.com/0xPolygon/interop-edge/storage/memory"
)

// newStorageFactory opens one storage per network member under dataDir with the given engine
func newStorageFactory(engine, dataDir string, logger hclog.Logger) (devnet.StorageFactory, error) {
	switch engine {
	case StorageMemory:
		return func(string) (storage.Storage, error) {
			return memory.NewMemoryStorage(logger)
		}, nil
	case StorageBoltDB, StorageLevelDB:
	default:
		return nil, fmt.Errorf("unknown storage engine %q", engine)
	}

	if err := common.SetupDataDir(dataDir, []string{engine}); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	return func(name string) (storage.Storage, error) {
		path := filepath.Join(dataDir, engine, name)

		if engine == StorageBoltDB {
			return boltdb.NewBoltDBStorage(path+".db", logger)
		}

		return leveldb.NewLevelDBStorage(path, leveldb.DefaultOptions(), logger)
	}, nil
}
