package devnet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygon/interop-edge/aggregator"
	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/storage/memory"
)

// Config is the layout of an in-process network
type Config struct {
	SettlementChainID uint64
	ChainIDs          []uint64
	// FinalityDepth is the number of settlement blocks on top of a block before it is final
	FinalityDepth uint64
	// BlockInterval is the period of L1 mining and L2 block sealing
	BlockInterval time.Duration
	// BlocksPerBatch is the number of L2 blocks sealed into one batch
	BlocksPerBatch int
	// SealInterval is the period of settlement block sealing
	SealInterval time.Duration
	SyncInterval time.Duration
	CacheSize    int
}

// DefaultConfig returns a two chain network
func DefaultConfig() *Config {
	return &Config{
		SettlementChainID: 505,
		ChainIDs:          []uint64{270, 271},
		FinalityDepth:     1,
		BlockInterval:     time.Second,
		BlocksPerBatch:    2,
		SealInterval:      2 * time.Second,
		SyncInterval:      time.Second,
	}
}

// StorageFactory opens the storage of a network member by name
type StorageFactory func(name string) (storage.Storage, error)

// MemoryStorageFactory opens in-memory storages
func MemoryStorageFactory(logger hclog.Logger) StorageFactory {
	return func(string) (storage.Storage, error) {
		return memory.NewMemoryStorage(logger)
	}
}

// Network is an in-process L1 hub, settlement layer and set of L2 chains
type Network struct {
	config *Config
	logger hclog.Logger

	L1          *L1Hub
	Settlement  *aggregator.Aggregator
	Coordinator *bridge.Coordinator

	chains   map[uint64]*Chain
	storages []storage.Storage
}

// NewNetwork opens every member of the network
func NewNetwork(config *Config, open StorageFactory, logger hclog.Logger) (*Network, error) {
	defaults := DefaultConfig()

	if config.BlockInterval <= 0 {
		config.BlockInterval = defaults.BlockInterval
	}

	if config.SealInterval <= 0 {
		config.SealInterval = defaults.SealInterval
	}

	if config.BlocksPerBatch <= 0 {
		config.BlocksPerBatch = defaults.BlocksPerBatch
	}

	n := &Network{
		config: config,
		logger: logger.Named("devnet"),
		L1:     NewL1Hub(logger),
		chains: map[uint64]*Chain{},
	}

	settlementDB, err := n.open(open, "settlement")
	if err != nil {
		return nil, err
	}

	n.Settlement, err = aggregator.New(config.SettlementChainID, &aggregator.Config{
		FinalityDepth: config.FinalityDepth,
		SealInterval:  config.SealInterval,
	}, settlementDB, logger)
	if err != nil {
		return nil, n.closeWith(err)
	}

	gateways := make([]bridge.L2Gateway, 0, len(config.ChainIDs))

	for _, chainID := range config.ChainIDs {
		if chainID == config.SettlementChainID {
			return nil, n.closeWith(fmt.Errorf("chain %d is the settlement layer", chainID))
		}

		db, err := n.open(open, fmt.Sprintf("chain-%d", chainID))
		if err != nil {
			return nil, n.closeWith(err)
		}

		chain, err := newChain(chainID, config, db, n.L1, n.Settlement, logger)
		if err != nil {
			return nil, n.closeWith(err)
		}

		if err := chain.restore(); err != nil {
			return nil, n.closeWith(fmt.Errorf("failed to restore chain %d: %w", chainID, err))
		}

		n.chains[chainID] = chain
		gateways = append(gateways, chain)
	}

	bridgeDB, err := n.open(open, "bridge")
	if err != nil {
		return nil, n.closeWith(err)
	}

	n.Coordinator = bridge.NewCoordinator(bridgeDB, n.L1, gateways, logger)

	return n, nil
}

func (n *Network) open(open StorageFactory, name string) (storage.Storage, error) {
	db, err := open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", name, err)
	}

	n.storages = append(n.storages, db)

	return db, nil
}

func (n *Network) closeWith(err error) error {
	if closeErr := n.Close(); closeErr != nil {
		return multierror.Append(err, closeErr)
	}

	return err
}

// Chain returns an L2 chain of the network
func (n *Network) Chain(chainID uint64) (*Chain, bool) {
	chain, ok := n.chains[chainID]

	return chain, ok
}

// Chains returns the L2 chains ordered by id
func (n *Network) Chains() []*Chain {
	chains := make([]*Chain, 0, len(n.chains))
	for _, chain := range n.chains {
		chains = append(chains, chain)
	}

	sort.Slice(chains, func(i, j int) bool {
		return chains[i].chainID < chains[j].chainID
	})

	return chains
}

// Step advances the whole network by one deterministic round: L1 mines, every chain
// seals a block and a batch, the settlement layer seals and finalizes, every chain syncs.
func (n *Network) Step() error {
	n.L1.MineBlock()

	for _, chain := range n.Chains() {
		chain.SealBlock()

		if _, err := chain.SealBatch(); err != nil {
			return err
		}
	}

	if _, err := n.Settlement.SealBlock(); err != nil {
		return err
	}

	if err := n.Settlement.FinalizeReady(); err != nil {
		return err
	}

	var result error

	for _, chain := range n.Chains() {
		if _, err := chain.syncer.SyncOnce(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// Run runs every member of the network as an independent background process until the
// context is done
func (n *Network) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return n.Settlement.Run(ctx)
	})

	g.Go(func() error {
		return n.tick(ctx, n.config.BlockInterval, func() error {
			n.L1.MineBlock()

			return nil
		})
	})

	for _, chain := range n.Chains() {
		chain := chain

		g.Go(func() error {
			return chain.syncer.Run(ctx)
		})

		g.Go(func() error {
			blocks := 0

			return n.tick(ctx, n.config.BlockInterval, func() error {
				chain.SealBlock()

				if blocks++; blocks < n.config.BlocksPerBatch {
					return nil
				}

				blocks = 0

				_, err := chain.SealBatch()

				return err
			})
		})
	}

	return g.Wait()
}

func (n *Network) tick(ctx context.Context, interval time.Duration, fn func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := fn(); err != nil {
			n.logger.Error("network process failed", "err", err)

			return err
		}
	}
}

// Close closes every storage of the network
func (n *Network) Close() error {
	var result error

	for _, db := range n.storages {
		if err := db.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	n.storages = nil

	return result
}
