package devnet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/aggregator"
	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/chainroot"
	"github.com/0xPolygon/interop-edge/commitment"
	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/interop"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

type txKind uint8

const (
	txDeposit txKind = iota
	txWithdrawal
	txTransfer
	txMessage
)

type tx struct {
	kind   txKind
	hash   types.Hash
	sender types.Address
	amount *big.Int

	// deposits
	receiver types.Address
	fail     bool

	// withdrawals and transfers
	payload []byte
}

// Chain is an L2 chain: a toy VM over base token balances whose transactions emit
// messages, sealed into batches committed to the chain root and published to the settlement layer
type Chain struct {
	chainID uint64
	logger  hclog.Logger

	storage    storage.Storage
	builder    *commitment.Builder
	tracker    *chainroot.Tracker
	store      *interop.Store
	syncer     *interop.Syncer
	assembler  *proof.Assembler
	l1         *L1Hub
	settlement *aggregator.Aggregator

	lock      sync.Mutex
	balances  map[types.Address]*big.Int
	mempool   []*tx
	receipts  map[types.Hash]*bridge.Receipt
	nonce     uint64
	nextBlock uint64
	txNumber  uint16
	// open batch
	blocks   []*types.Block
	included []types.Hash
	// assigned counts the unassigned interop roots already carried by open blocks
	assigned int
	// published is the next batch height to publish to the settlement layer
	published uint64
	// interop messages already executed, by position on their source chain
	executed map[types.MessageRef]bool
}

func newChain(chainID uint64, config *Config, db storage.Storage, l1 *L1Hub,
	settlement *aggregator.Aggregator, logger hclog.Logger) (*Chain, error) {
	builder, err := commitment.NewBuilder(logger, config.CacheSize)
	if err != nil {
		return nil, err
	}

	tracker, err := chainroot.NewTracker(chainID, db, logger)
	if err != nil {
		return nil, err
	}

	store, err := interop.NewStore(chainID, db, logger)
	if err != nil {
		return nil, err
	}

	syncer, err := interop.NewSyncer(store, settlement, db, &interop.SyncerConfig{
		SettlementChainID: settlement.ChainID(),
		PollInterval:      config.SyncInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Chain{
		chainID:    chainID,
		logger:     logger.Named("chain").With("chain", chainID),
		storage:    db,
		builder:    builder,
		tracker:    tracker,
		store:      store,
		syncer:     syncer,
		assembler:  proof.NewAssembler(db, builder, settlement, logger),
		l1:         l1,
		settlement: settlement,
		balances:   map[types.Address]*big.Int{},
		receipts:   map[types.Hash]*bridge.Receipt{},
		nextBlock:  1,
		executed:   map[types.MessageRef]bool{},
	}, nil
}

// ChainID implements bridge.L2Gateway
func (c *Chain) ChainID() uint64 {
	return c.chainID
}

// Tracker returns the chain root tracker of the chain
func (c *Chain) Tracker() *chainroot.Tracker {
	return c.tracker
}

// Builder returns the commitment builder of the chain
func (c *Chain) Builder() *commitment.Builder {
	return c.builder
}

// Storage returns the storage of the chain
func (c *Chain) Storage() storage.Storage {
	return c.storage
}

// Syncer returns the interop root syncer feeding the chain
func (c *Chain) Syncer() *interop.Syncer {
	return c.syncer
}

// Assembler returns the inclusion proof assembler of the chain
func (c *Chain) Assembler() *proof.Assembler {
	return c.assembler
}

// Proofs implements bridge.L2Gateway
func (c *Chain) Proofs() bridge.ProofSource {
	return c.assembler
}

// InteropRoots implements bridge.L2Gateway
func (c *Chain) InteropRoots() proof.InteropRootReader {
	return c.store
}

// InteropRootStore returns the interop root store of the chain
func (c *Chain) InteropRootStore() *interop.Store {
	return c.store
}

// Mint credits an account of the chain
func (c *Chain) Mint(addr types.Address, amount *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	credit(c.balances, addr, amount)
}

// BalanceOf returns the balance of an account of the chain
func (c *Chain) BalanceOf(addr types.Address) *big.Int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return balanceOf(c.balances, addr)
}

// Receipt implements bridge.L2Gateway
func (c *Chain) Receipt(txHash types.Hash) (*bridge.Receipt, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, nil
	}

	r := *receipt

	return &r, nil
}

func (c *Chain) submit(t *tx) types.Hash {
	c.nonce++
	t.hash = crypto.Keccak256Hash(common.EncodeUint64ToBytes(c.chainID), common.EncodeUint64ToBytes(c.nonce),
		t.sender.Bytes())

	c.mempool = append(c.mempool, t)
	c.receipts[t.hash] = &bridge.Receipt{TxHash: t.hash, Status: bridge.ReceiptQueued}

	return t.hash
}

// Withdraw implements bridge.L2Gateway
func (c *Chain) Withdraw(req *bridge.WithdrawalRequest) (types.Hash, error) {
	payload, err := (&bridge.WithdrawalPayload{Receiver: req.Receiver, Token: req.Token, Amount: req.Amount}).EncodeAbi()
	if err != nil {
		return types.ZeroHash, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.submit(&tx{kind: txWithdrawal, sender: req.Sender, amount: req.Amount, payload: payload}), nil
}

// SendMessage submits a transaction sending an arbitrary L2 to L1 message from sender
func (c *Chain) SendMessage(sender types.Address, data []byte) types.Hash {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.submit(&tx{kind: txMessage, sender: sender, payload: append([]byte(nil), data...)})
}

// Transfer implements bridge.L2Gateway
func (c *Chain) Transfer(req *bridge.TransferRequest) (types.Hash, error) {
	payload, err := (&bridge.TransferPayload{
		DestinationChainID: req.DestinationChainID,
		Receiver:           req.Receiver,
		Token:              req.Token,
		Amount:             req.Amount,
	}).EncodeAbi()
	if err != nil {
		return types.ZeroHash, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.submit(&tx{kind: txTransfer, sender: req.Sender, amount: req.Amount, payload: payload}), nil
}

// ExecuteInterop implements bridge.L2Gateway: it verifies the transfer message against the
// interop root delivered to this chain and mints its amount once
func (c *Chain) ExecuteInterop(p *proof.InclusionProof) error {
	if p.Message == nil || p.Message.Sender != bridge.InteropCenterAddress {
		return fmt.Errorf("%w: not a transfer", ErrInvalidMessage)
	}

	payload := &bridge.TransferPayload{}
	if err := payload.DecodeAbi(p.Message.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if payload.DestinationChainID != c.chainID {
		return fmt.Errorf("%w: transfer to chain %d executed on %d", ErrInvalidMessage, payload.DestinationChainID, c.chainID)
	}

	if err := proof.VerifyInterop(p, c.store); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	ref := types.MessageRef{ChainID: p.ChainID, BatchNumber: p.BatchNumber, MessageIndex: p.MessageIndex}
	if c.executed[ref] {
		return fmt.Errorf("%w: interop message %d/%d/%d", ErrAlreadyProcessed, ref.ChainID, ref.BatchNumber, ref.MessageIndex)
	}

	c.executed[ref] = true
	credit(c.balances, payload.Receiver, payload.Amount)

	c.logger.Info("interop transfer executed", "source", p.ChainID, "batch", p.BatchNumber,
		"receiver", payload.Receiver, "amount", payload.Amount)

	return nil
}

// SealBlock executes the priority transactions and the mempool into a new block of the
// open batch. The interop roots delivered since the previous block are assigned to it.
func (c *Chain) SealBlock() *types.Block {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.sealBlock()
}

func (c *Chain) sealBlock() *types.Block {
	for _, ptx := range c.l1.TakePriorityTxs(c.chainID) {
		c.mempool = append(c.mempool, &tx{
			kind: txDeposit, hash: ptx.Hash, receiver: ptx.Receiver, amount: ptx.Amount, fail: ptx.Fail,
		})
	}

	block := &types.Block{Number: c.nextBlock}

	// roots leave the syncer's unassigned set only once their batch is stored
	if pending := c.syncer.Unassigned(); c.assigned < len(pending) {
		block.InteropRoots = pending[c.assigned:]
		c.assigned = len(pending)
	}

	for _, t := range c.mempool {
		msg, ok := c.execute(t)

		status := bridge.ReceiptSucceeded
		if !ok {
			status = bridge.ReceiptFailed
		}

		c.receipts[t.hash] = &bridge.Receipt{TxHash: t.hash, Status: status}
		c.included = append(c.included, t.hash)

		if msg != nil {
			msg.TxNumberInBatch = c.txNumber
			msg.TxHash = t.hash
			block.Messages = append(block.Messages, msg)
		}

		c.txNumber++
	}

	c.mempool = nil
	c.nextBlock++
	c.blocks = append(c.blocks, block)

	return block
}

// execute runs a transaction and returns the message it emits and whether it succeeded
func (c *Chain) execute(t *tx) (*types.Message, bool) {
	switch t.kind {
	case txDeposit:
		success := !t.fail
		if success {
			credit(c.balances, t.receiver, t.amount)
		}

		// the bootloader reports the outcome of every priority transaction
		data, err := (&bridge.DepositStatusPayload{L1TxHash: t.hash, Success: success}).EncodeAbi()
		if err != nil {
			c.logger.Error("failed to encode deposit status", "tx", t.hash, "err", err)

			return nil, false
		}

		return &types.Message{Sender: bridge.BootloaderAddress, Data: data}, success
	case txWithdrawal, txTransfer:
		if err := debit(c.balances, t.sender, t.amount); err != nil {
			c.logger.Debug("transaction reverted", "tx", t.hash, "err", err)

			return nil, false
		}

		sender := bridge.L2BridgeAddress
		if t.kind == txTransfer {
			sender = bridge.InteropCenterAddress
		}

		return &types.Message{Sender: sender, Data: append([]byte(nil), t.payload...)}, true
	case txMessage:
		return &types.Message{Sender: t.sender, Data: append([]byte(nil), t.payload...)}, true
	}

	return nil, false
}

// SealBatch seals the open blocks into the next batch, appends its root to the chain root,
// publishes the chain root to the settlement layer and executes the batch on L1.
// A batch always holds at least one block.
func (c *Chain) SealBatch() (*types.Batch, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(c.blocks) == 0 {
		c.sealBlock()
	}

	batch := &types.Batch{ChainID: c.chainID, Number: c.tracker.Size(), Blocks: c.blocks}

	commit, err := c.builder.Seal(batch)
	if err != nil {
		return nil, err
	}

	if err := c.storage.AppendBatch(batch, commit.Markers); err != nil {
		return nil, fmt.Errorf("failed to store batch %d: %w", batch.Number, err)
	}

	if err := c.syncer.MarkAssigned(InteropRootsForBatch(batch)); err != nil {
		return nil, fmt.Errorf("failed to mark interop roots of batch %d assigned: %w", batch.Number, err)
	}

	c.assigned = 0

	chainRoot, err := c.tracker.Append(batch.Number, batch.Root)
	if err != nil {
		return nil, err
	}

	for _, hash := range c.included {
		if receipt, ok := c.receipts[hash]; ok {
			receipt.Sealed = true
			receipt.BatchNumber = batch.Number
		}
	}

	c.blocks = nil
	c.included = nil
	c.txNumber = 0

	if err := c.publishPending(); err != nil {
		return nil, err
	}

	if err := c.l1.ExecuteBatch(c.chainID, batch.Number, chainRoot, InteropRootsForBatch(batch)); err != nil {
		return nil, err
	}

	c.logger.Debug("batch sealed", "batch", batch.Number, "messages", commit.MessageCount,
		"root", batch.Root, "chain root", chainRoot)

	return batch, nil
}

// PublishPending publishes the chain roots of the sealed batches the settlement layer has
// not accepted yet, for instance after the chain was resumed there
func (c *Chain) PublishPending() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.publishPending()
}

// publishPending publishes chain roots in height order. While the chain is halted on the
// settlement layer the remaining heights stay queued.
func (c *Chain) publishPending() error {
	for c.published < c.tracker.Size() {
		height := c.published

		chainRoot, err := c.tracker.GetChainRootAt(height)
		if err != nil {
			return err
		}

		var conflict *aggregator.RootConflictError

		err = c.settlement.Publish(c.chainID, height, chainRoot)

		switch {
		case err == nil:
		case errors.As(err, &conflict):
			// the settlement layer keeps the root it accepted first
			c.logger.Error("chain root rejected by the settlement layer", "batch", height,
				"accepted", conflict.Existing, "rejected", conflict.Incoming)
		case errors.Is(err, aggregator.ErrChainHalted):
			c.logger.Warn("chain halted on the settlement layer, publication deferred", "batch", height)

			return nil
		default:
			return fmt.Errorf("failed to publish chain root of batch %d: %w", height, err)
		}

		c.published++
	}

	return nil
}

// restore replays the batches found in storage: block numbering resumes after the last
// sealed block and L1 gets the execution record of every batch back. Balances live in memory.
func (c *Chain) restore() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	size := c.tracker.Size()

	for number := uint64(0); number < size; number++ {
		batch, err := c.storage.ReadBatch(c.chainID, number)
		if err != nil {
			return err
		}

		chainRoot, err := c.tracker.GetChainRootAt(number)
		if err != nil {
			return err
		}

		if err := c.l1.ExecuteBatch(c.chainID, number, chainRoot, InteropRootsForBatch(batch)); err != nil {
			return err
		}

		// the node may have stopped between storing the batch and releasing its roots
		if err := c.syncer.MarkAssigned(InteropRootsForBatch(batch)); err != nil {
			return err
		}

		if n := len(batch.Blocks); n > 0 {
			c.nextBlock = batch.Blocks[n-1].Number + 1
		}
	}

	published, err := c.settlement.Published(c.chainID)
	if err != nil {
		return err
	}

	c.published = common.Min(published, size)

	if size > 0 {
		c.logger.Info("chain restored", "batches", size, "next block", c.nextBlock,
			"unpublished", size-c.published)
	}

	return c.publishPending()
}

// InteropRootsForBatch returns the interop roots assigned to the blocks of a batch
func InteropRootsForBatch(batch *types.Batch) []*types.InteropRootRef {
	var refs []*types.InteropRootRef

	for _, block := range batch.Blocks {
		refs = append(refs, block.InteropRoots...)
	}

	return refs
}
