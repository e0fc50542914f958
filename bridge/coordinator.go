package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

func init() {
	poll.RegisterRetryable(ErrRetryLater)
}

// ClaimResult is the outcome of a failed deposit claim
type ClaimResult struct {
	Deposit *Operation `json:"deposit"`
	Claim   *Operation `json:"claim,omitempty"`
	// Refunded is the amount paid back on L1, zero when the deposit was already claimed
	Refunded *big.Int `json:"refunded"`
}

// Coordinator drives the bridging operations. It never blocks: every Poll checks the
// evidence of the next transitions once and advances as far as it allows.
type Coordinator struct {
	logger  hclog.Logger
	storage storage.Storage
	l1      L1Gateway
	l2      map[uint64]L2Gateway

	lock sync.Mutex
}

// NewCoordinator creates a coordinator persisting operations in store
func NewCoordinator(store storage.Storage, l1 L1Gateway, l2 []L2Gateway, logger hclog.Logger) *Coordinator {
	chains := make(map[uint64]L2Gateway, len(l2))
	for _, gw := range l2 {
		chains[gw.ChainID()] = gw
	}

	return &Coordinator{
		logger:  logger.Named("bridge"),
		storage: store,
		l1:      l1,
		l2:      chains,
	}
}

func (c *Coordinator) chain(chainID uint64) (L2Gateway, error) {
	gw, ok := c.l2[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chain %d", ErrMalformedRequest, chainID)
	}

	return gw, nil
}

// SubmitDeposit starts a deposit and returns its handle, the hash of the L1 transaction
func (c *Coordinator) SubmitDeposit(req *DepositRequest) (types.Hash, error) {
	if err := req.validate(); err != nil {
		return types.ZeroHash, err
	}

	if _, err := c.chain(req.ChainID); err != nil {
		return types.ZeroHash, err
	}

	txHash, err := c.l1.Deposit(req)
	if err != nil {
		return types.ZeroHash, fmt.Errorf("failed to submit deposit: %w", err)
	}

	op := &Operation{
		Kind:               KindDeposit,
		Handle:             txHash,
		State:              StateInitiated,
		Sender:             req.Sender,
		Receiver:           req.Receiver,
		Token:              req.Token,
		Amount:             new(big.Int).Set(req.Amount),
		DestinationChainID: req.ChainID,
		// the priority transaction keeps the hash of its L1 transaction
		L2TxHash: txHash,
	}

	return txHash, c.submitted(op)
}

// SubmitWithdrawal starts a withdrawal and returns its handle, the hash of the L2 transaction
func (c *Coordinator) SubmitWithdrawal(req *WithdrawalRequest) (types.Hash, error) {
	if err := req.validate(); err != nil {
		return types.ZeroHash, err
	}

	gw, err := c.chain(req.ChainID)
	if err != nil {
		return types.ZeroHash, err
	}

	txHash, err := gw.Withdraw(req)
	if err != nil {
		return types.ZeroHash, fmt.Errorf("failed to submit withdrawal: %w", err)
	}

	op := &Operation{
		Kind:          KindWithdrawal,
		Handle:        txHash,
		State:         StateInitiated,
		Sender:        req.Sender,
		Receiver:      req.Receiver,
		Token:         req.Token,
		Amount:        new(big.Int).Set(req.Amount),
		SourceChainID: req.ChainID,
		L2TxHash:      txHash,
	}

	return txHash, c.submitted(op)
}

// SubmitTransfer starts an L2 to L2 transfer and returns its handle, the hash of the source L2 transaction
func (c *Coordinator) SubmitTransfer(req *TransferRequest) (types.Hash, error) {
	if err := req.validate(); err != nil {
		return types.ZeroHash, err
	}

	if _, err := c.chain(req.DestinationChainID); err != nil {
		return types.ZeroHash, err
	}

	gw, err := c.chain(req.SourceChainID)
	if err != nil {
		return types.ZeroHash, err
	}

	txHash, err := gw.Transfer(req)
	if err != nil {
		return types.ZeroHash, fmt.Errorf("failed to submit transfer: %w", err)
	}

	op := &Operation{
		Kind:               KindTransfer,
		Handle:             txHash,
		State:              StateInitiated,
		Sender:             req.Sender,
		Receiver:           req.Receiver,
		Token:              req.Token,
		Amount:             new(big.Int).Set(req.Amount),
		SourceChainID:      req.SourceChainID,
		DestinationChainID: req.DestinationChainID,
		L2TxHash:           txHash,
	}

	return txHash, c.submitted(op)
}

func (c *Coordinator) submitted(op *Operation) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.storage.WriteOperation(op.Handle, op); err != nil {
		return fmt.Errorf("failed to persist %s %s: %w", op.Kind, op.Handle, err)
	}

	metrics.IncrCounterWithLabels([]string{"bridge", "operations"}, 1,
		[]metrics.Label{{Name: "kind", Value: string(op.Kind)}})
	c.logger.Info("operation submitted", "kind", op.Kind, "handle", op.Handle, "amount", op.Amount)

	return nil
}

func (c *Coordinator) load(handle types.Hash) (*Operation, error) {
	op := &Operation{}

	found, err := c.storage.ReadOperation(handle, op)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, handle)
	}

	return op, nil
}

// GetStatus returns the operation behind a handle as last persisted
func (c *Coordinator) GetStatus(handle types.Hash) (*Operation, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.load(handle)
}

// Operations returns every operation in submission order
func (c *Coordinator) Operations() ([]*Operation, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	hashes, err := c.storage.ReadOperationHashes()
	if err != nil {
		return nil, err
	}

	ops := make([]*Operation, 0, len(hashes))

	for _, hash := range hashes {
		op, err := c.load(hash)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	return ops, nil
}

// Poll checks the evidence of the next transitions of an operation once and returns the
// operation in its new state. It is safe to repeat. Conditions meaning "not yet" are not errors.
func (c *Coordinator) Poll(handle types.Hash) (*Operation, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	op, err := c.load(handle)
	if err != nil {
		return nil, err
	}

	if err := c.advance(op); err != nil {
		return op.copy(), err
	}

	return op.copy(), nil
}

// advance applies transitions while evidence is available and persists the result
func (c *Coordinator) advance(op *Operation) error {
	from := op.State

	var stepErr error

	for {
		advanced, err := c.step(op)
		if err != nil {
			if !poll.IsRetryable(err) {
				stepErr = err
			}

			break
		}

		if !advanced {
			break
		}

		metrics.IncrCounterWithLabels([]string{"bridge", "transitions"}, 1,
			[]metrics.Label{{Name: "kind", Value: string(op.Kind)}, {Name: "state", Value: string(op.State)}})
	}

	if op.State != from {
		if err := c.storage.WriteOperation(op.Handle, op); err != nil {
			return fmt.Errorf("failed to persist %s %s: %w", op.Kind, op.Handle, err)
		}

		c.logger.Info("operation advanced", "kind", op.Kind, "handle", op.Handle, "from", from, "to", op.State)
	}

	if stepErr != nil {
		c.logger.Error("operation stuck", "kind", op.Kind, "handle", op.Handle, "state", op.State, "err", stepErr)
	}

	return stepErr
}

func (c *Coordinator) step(op *Operation) (bool, error) {
	switch op.Kind {
	case KindDeposit:
		return c.stepDeposit(op)
	case KindWithdrawal, KindTransfer:
		return c.stepOutgoing(op)
	default:
		return false, nil
	}
}

func (c *Coordinator) stepDeposit(op *Operation) (bool, error) {
	gw, err := c.chain(op.DestinationChainID)
	if err != nil {
		return false, err
	}

	if op.State == StateInitiated {
		confirmed, err := c.l1.IsConfirmed(op.Handle)
		if err != nil || !confirmed {
			return false, err
		}

		return true, op.onL1Confirmed()
	}

	if IsTerminal(op.Kind, op.State) || op.State == StateAwaitingClaim {
		return false, nil
	}

	receipt, err := gw.Receipt(op.L2TxHash)
	if err != nil || receipt == nil {
		return false, err
	}

	switch op.State {
	case StateL1Committed:
		return true, op.onL2Queued()
	case StateL2Executing:
		if receipt.Status == ReceiptQueued {
			return false, nil
		}

		return true, op.onL2Receipt(receipt)
	case StateL2Succeeded:
		if !receipt.Sealed {
			return false, nil
		}

		if _, err := c.l1.ChainRootAt(op.DestinationChainID, receipt.BatchNumber); err != nil {
			return false, err
		}

		return true, op.onFinalized(receipt.BatchNumber)
	case StateL2Failed:
		// the failure status message of the bootloader is emitted by the deposit transaction itself
		p, err := c.proofOf(gw, proof.Direct, op.L2TxHash)
		if err != nil || p == nil {
			return false, err
		}

		if err := proof.VerifyDirect(p, c.l1); err != nil {
			return false, err
		}

		return true, op.onProof(p)
	}

	return false, nil
}

func (c *Coordinator) stepOutgoing(op *Operation) (bool, error) {
	gw, err := c.chain(op.SourceChainID)
	if err != nil {
		return false, err
	}

	switch op.State {
	case StateInitiated:
		receipt, err := gw.Receipt(op.L2TxHash)
		if err != nil || receipt == nil || !receipt.Sealed {
			return false, err
		}

		if receipt.Status == ReceiptFailed {
			return false, fmt.Errorf("%s transaction %s reverted on chain %d", op.Kind, op.L2TxHash, op.SourceChainID)
		}

		return true, op.onSealed(receipt.BatchNumber)
	case StateL2Sealed:
		return true, op.transition(StateAwaitingProof)
	case StateAwaitingProof:
		kind := proof.Direct
		if op.Kind == KindTransfer {
			kind = proof.Interop
		}

		p, err := c.proofOf(gw, kind, op.L2TxHash)
		if err != nil || p == nil {
			return false, err
		}

		if op.Kind == KindTransfer {
			dst, err := c.chain(op.DestinationChainID)
			if err != nil {
				return false, err
			}

			err = proof.VerifyInterop(p, dst.InteropRoots())
			if err != nil {
				return false, err
			}
		} else if err := proof.VerifyDirect(p, c.l1); err != nil {
			return false, err
		}

		return true, op.onProof(p)
	case StateProofReady:
		if op.Kind == KindTransfer {
			dst, err := c.chain(op.DestinationChainID)
			if err != nil {
				return false, err
			}

			if err := dst.ExecuteInterop(op.Proof); err != nil {
				return false, err
			}

			return true, op.transition(StateExecuted)
		}

		if err := c.l1.FinalizeWithdrawal(op.Proof); err != nil {
			return false, err
		}

		return true, op.transition(StateL1Finalized)
	}

	return false, nil
}

// proofOf returns the proof of the first message of a transaction, nil while it is pending
func (c *Coordinator) proofOf(gw L2Gateway, kind proof.Kind, txHash types.Hash) (*proof.InclusionProof, error) {
	res := gw.Proofs().GetInclusionProof(proof.Ref{Kind: kind, TxHash: txHash})

	switch res.Status {
	case proof.StatusReady:
		return res.Proof, nil
	case proof.StatusPending, proof.StatusNotFound:
		// the transaction may not be sealed into a batch yet
		return nil, nil
	default:
		return nil, res.Err
	}
}

// ClaimFailedDeposit refunds a deposit whose L2 execution failed. It returns ErrRetryLater
// while the failure cannot be proven yet and ErrMalformedRequest for deposits that did not fail.
func (c *Coordinator) ClaimFailedDeposit(handle types.Hash) (*ClaimResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	op, err := c.load(handle)
	if err != nil {
		return nil, err
	}

	if op.Kind != KindDeposit {
		return nil, fmt.Errorf("%w: %s %s is not a deposit", ErrMalformedRequest, op.Kind, handle)
	}

	if err := c.advance(op); err != nil {
		return nil, err
	}

	switch op.State {
	case StateClaimed:
		return &ClaimResult{Deposit: op.copy(), Refunded: big.NewInt(0)}, nil
	case StateL2Succeeded, StateFinalized:
		return nil, fmt.Errorf("%w: deposit %s did not fail", ErrMalformedRequest, handle)
	case StateAwaitingClaim:
	default:
		return nil, fmt.Errorf("%w: deposit %s is %s", ErrRetryLater, handle, op.State)
	}

	refunded, err := c.l1.ClaimFailedDeposit(op.Handle, op.Proof)

	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyClaimed):
		// paid out by an earlier claim whose record was not stored
		c.logger.Warn("deposit already refunded on L1, recording the claim", "deposit", handle)

		refunded = big.NewInt(0)
	case poll.IsRetryable(err):
		return nil, fmt.Errorf("%w: %w", ErrRetryLater, err)
	default:
		return nil, fmt.Errorf("failed to claim deposit %s: %w", handle, err)
	}

	if err := op.transition(StateClaimed); err != nil {
		return nil, err
	}

	parent := op.Handle
	claim := &Operation{
		Kind:          KindFailedDepositClaim,
		Handle:        crypto.Keccak256Hash([]byte(KindFailedDepositClaim), handle.Bytes()),
		State:         StateInitiated,
		Sender:        op.Sender,
		Receiver:      op.Sender,
		Token:         op.Token,
		Amount:        new(big.Int).Set(op.Amount),
		SourceChainID: op.DestinationChainID,
		Proof:         op.Proof,
		Parent:        &parent,
	}

	if err := claim.transition(StateClaimed); err != nil {
		return nil, err
	}

	if err := c.storage.WriteOperation(op.Handle, op); err != nil {
		return nil, err
	}

	if err := c.storage.WriteOperation(claim.Handle, claim); err != nil {
		return nil, err
	}

	metrics.IncrCounterWithLabels([]string{"bridge", "operations"}, 1,
		[]metrics.Label{{Name: "kind", Value: string(claim.Kind)}})
	c.logger.Info("failed deposit claimed", "deposit", handle, "refunded", refunded)

	return &ClaimResult{Deposit: op.copy(), Claim: claim.copy(), Refunded: refunded}, nil
}

// WaitFor polls an operation until it reaches one of the target states. It returns
// ErrClaimRequired when a deposit failed and no target is on the claim path, and
// ErrRetryLater when the policy is exhausted.
func (c *Coordinator) WaitFor(ctx context.Context, handle types.Hash, policy poll.Policy,
	targets ...State) (*Operation, error) {
	var op *Operation

	err := poll.Until(ctx, policy, func(context.Context) (bool, error) {
		var err error

		if op, err = c.Poll(handle); err != nil {
			return false, err
		}

		for _, target := range targets {
			if op.State == target {
				return true, nil
			}
		}

		for _, target := range targets {
			if reachable(op.Kind, op.State, target) {
				return false, nil
			}
		}

		if op.Kind == KindDeposit && reachable(op.Kind, StateL2Failed, op.State) {
			return false, fmt.Errorf("%w: deposit %s is %s", ErrClaimRequired, handle, op.State)
		}

		return false, fmt.Errorf("%w: %s %s is %s", ErrInvalidTransition, op.Kind, handle, op.State)
	})

	if errors.Is(err, poll.ErrTimeout) {
		return op, fmt.Errorf("%w: %w", ErrRetryLater, err)
	}

	return op, err
}

// reachable reports whether to can be reached from from (or is from itself)
func reachable(kind Kind, from, to State) bool {
	seen := map[State]bool{from: true}
	queue := []State{from}

	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]

		if state == to {
			return true
		}

		for _, next := range transitions[kind][state] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}
