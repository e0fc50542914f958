package devnet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/bridge"
	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrBatchNotExecuted is returned for chain roots of batches L1 has not executed yet. It is retryable.
	ErrBatchNotExecuted = errors.New("batch not executed on L1")
	// ErrInsufficientFunds is returned when a sender cannot cover an amount
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAlreadyProcessed is returned for a message or a claim processed before
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrInvalidMessage is returned for proofs whose message does not fit the operation
	ErrInvalidMessage = errors.New("invalid message")
)

func init() {
	poll.RegisterRetryable(ErrBatchNotExecuted)
}

// PriorityTx is a deposit enqueued on L1 for an L2 chain. Its L2 hash is the L1 tx hash.
type PriorityTx struct {
	Hash     types.Hash
	Receiver types.Address
	Amount   *big.Int
	Fail     bool
}

// ExecutedBatch is the L1 record of an executed batch
type ExecutedBatch struct {
	ChainRoot types.Hash
	// InteropRoots are the dependency roots the batch consumed
	InteropRoots []*types.InteropRootRef
}

type deposit struct {
	req     *bridge.DepositRequest
	claimed bool
}

// L1Hub is the L1 of the network: it holds the base token balances, enqueues deposits,
// records the chain root of every executed batch and pays out proven withdrawals.
type L1Hub struct {
	logger hclog.Logger

	lock        sync.Mutex
	balances    map[types.Address]*big.Int
	nonce       uint64
	unconfirmed []types.Hash
	confirmed   map[types.Hash]bool
	deposits    map[types.Hash]*deposit
	queues      map[uint64][]*PriorityTx
	executed    map[uint64][]*ExecutedBatch
	processed   map[types.MessageRef]bool
}

// NewL1Hub creates an empty L1
func NewL1Hub(logger hclog.Logger) *L1Hub {
	return &L1Hub{
		logger:    logger.Named("l1"),
		balances:  map[types.Address]*big.Int{},
		confirmed: map[types.Hash]bool{},
		deposits:  map[types.Hash]*deposit{},
		queues:    map[uint64][]*PriorityTx{},
		executed:  map[uint64][]*ExecutedBatch{},
		processed: map[types.MessageRef]bool{},
	}
}

// Mint credits an L1 account
func (h *L1Hub) Mint(addr types.Address, amount *big.Int) {
	h.lock.Lock()
	defer h.lock.Unlock()

	credit(h.balances, addr, amount)
}

// BalanceOf returns the L1 balance of an account
func (h *L1Hub) BalanceOf(addr types.Address) *big.Int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return balanceOf(h.balances, addr)
}

// Deposit implements bridge.L1Gateway. The funds are locked at once, the priority
// transaction reaches the chain once the L1 transaction is mined.
func (h *L1Hub) Deposit(req *bridge.DepositRequest) (types.Hash, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if err := debit(h.balances, req.Sender, req.Amount); err != nil {
		return types.ZeroHash, err
	}

	h.nonce++
	hash := crypto.Keccak256Hash([]byte("deposit"), common.EncodeUint64ToBytes(h.nonce), req.Sender.Bytes())

	h.deposits[hash] = &deposit{req: req}
	h.unconfirmed = append(h.unconfirmed, hash)

	h.logger.Debug("deposit submitted", "hash", hash, "chain", req.ChainID, "amount", req.Amount)

	return hash, nil
}

// MineBlock confirms the pending L1 transactions and enqueues their priority transactions
func (h *L1Hub) MineBlock() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for _, hash := range h.unconfirmed {
		h.confirmed[hash] = true

		if d, ok := h.deposits[hash]; ok {
			h.queues[d.req.ChainID] = append(h.queues[d.req.ChainID], &PriorityTx{
				Hash:     hash,
				Receiver: d.req.Receiver,
				Amount:   new(big.Int).Set(d.req.Amount),
				Fail:     d.req.FailOnL2,
			})
		}
	}

	h.unconfirmed = nil
}

// IsConfirmed implements bridge.L1Gateway
func (h *L1Hub) IsConfirmed(txHash types.Hash) (bool, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.confirmed[txHash], nil
}

// TakePriorityTxs drains the priority queue of a chain
func (h *L1Hub) TakePriorityTxs(chainID uint64) []*PriorityTx {
	h.lock.Lock()
	defer h.lock.Unlock()

	txs := h.queues[chainID]
	delete(h.queues, chainID)

	return txs
}

// ExecuteBatch records the execution of a batch. Batches of a chain are executed in order.
func (h *L1Hub) ExecuteBatch(chainID, batchNumber uint64, chainRoot types.Hash,
	interopRoots []*types.InteropRootRef) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if executed := uint64(len(h.executed[chainID])); batchNumber != executed {
		return fmt.Errorf("chain %d executes batch %d, expected %d", chainID, batchNumber, executed)
	}

	h.executed[chainID] = append(h.executed[chainID], &ExecutedBatch{ChainRoot: chainRoot, InteropRoots: interopRoots})

	h.logger.Debug("batch executed", "chain", chainID, "batch", batchNumber, "root", chainRoot,
		"interop roots", len(interopRoots))

	return nil
}

// ExecutedBatch returns the record of an executed batch
func (h *L1Hub) ExecutedBatch(chainID, batchNumber uint64) (*ExecutedBatch, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	batches := h.executed[chainID]
	if batchNumber >= uint64(len(batches)) {
		return nil, fmt.Errorf("%w: chain %d batch %d", ErrBatchNotExecuted, chainID, batchNumber)
	}

	return batches[batchNumber], nil
}

// ChainRootAt implements proof.ChainRootSource
func (h *L1Hub) ChainRootAt(chainID, batchNumber uint64) (types.Hash, error) {
	batch, err := h.ExecutedBatch(chainID, batchNumber)
	if err != nil {
		return types.ZeroHash, err
	}

	return batch.ChainRoot, nil
}

// FinalizeWithdrawal implements bridge.L1Gateway
func (h *L1Hub) FinalizeWithdrawal(p *proof.InclusionProof) error {
	if p.Message == nil || p.Message.Sender != bridge.L2BridgeAddress {
		return fmt.Errorf("%w: not a withdrawal", ErrInvalidMessage)
	}

	payload := &bridge.WithdrawalPayload{}
	if err := payload.DecodeAbi(p.Message.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if err := proof.VerifyDirect(p, h); err != nil {
		return err
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	ref := types.MessageRef{ChainID: p.ChainID, BatchNumber: p.BatchNumber, MessageIndex: p.MessageIndex}
	if h.processed[ref] {
		return fmt.Errorf("%w: withdrawal %d/%d/%d", ErrAlreadyProcessed, ref.ChainID, ref.BatchNumber, ref.MessageIndex)
	}

	h.processed[ref] = true
	credit(h.balances, payload.Receiver, payload.Amount)

	h.logger.Info("withdrawal finalized", "chain", p.ChainID, "batch", p.BatchNumber,
		"receiver", payload.Receiver, "amount", payload.Amount)

	return nil
}

// ClaimFailedDeposit implements bridge.L1Gateway
func (h *L1Hub) ClaimFailedDeposit(depositTxHash types.Hash, p *proof.InclusionProof) (*big.Int, error) {
	if p.Message == nil || p.Message.Sender != bridge.BootloaderAddress {
		return nil, fmt.Errorf("%w: not a deposit status", ErrInvalidMessage)
	}

	status := &bridge.DepositStatusPayload{}
	if err := status.DecodeAbi(p.Message.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if status.L1TxHash != depositTxHash || status.Success {
		return nil, fmt.Errorf("%w: status of %s is not a failure of %s", ErrInvalidMessage, status.L1TxHash, depositTxHash)
	}

	if err := proof.VerifyDirect(p, h); err != nil {
		return nil, err
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	d, ok := h.deposits[depositTxHash]
	if !ok || d.req.ChainID != p.ChainID {
		return nil, fmt.Errorf("%w: unknown deposit %s on chain %d", ErrInvalidMessage, depositTxHash, p.ChainID)
	}

	if d.claimed {
		return nil, fmt.Errorf("%w: %w: %s", ErrAlreadyProcessed, bridge.ErrAlreadyClaimed, depositTxHash)
	}

	d.claimed = true
	credit(h.balances, d.req.Sender, d.req.Amount)

	h.logger.Info("failed deposit refunded", "deposit", depositTxHash, "sender", d.req.Sender, "amount", d.req.Amount)

	return new(big.Int).Set(d.req.Amount), nil
}

func balanceOf(balances map[types.Address]*big.Int, addr types.Address) *big.Int {
	if balance, ok := balances[addr]; ok {
		return new(big.Int).Set(balance)
	}

	return big.NewInt(0)
}

func credit(balances map[types.Address]*big.Int, addr types.Address, amount *big.Int) {
	balances[addr] = new(big.Int).Add(balanceOf(balances, addr), amount)
}

func debit(balances map[types.Address]*big.Int, addr types.Address, amount *big.Int) error {
	balance := balanceOf(balances, addr)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, addr, balance, amount)
	}

	balances[addr] = balance.Sub(balance, amount)

	return nil
}
