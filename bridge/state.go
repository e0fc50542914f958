package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrRetryLater means the operation is waiting for another chain to advance
	ErrRetryLater = errors.New("try again later")
	// ErrClaimRequired means the deposit failed on L2 and must be claimed back on L1
	ErrClaimRequired = errors.New("deposit failed, claim required")
	// ErrMalformedRequest is returned for requests that can never succeed
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnknownOperation is returned for handles that were never submitted
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrInvalidTransition is returned when evidence does not apply to the current state
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrAlreadyClaimed is returned by L1 gateways for failed deposits refunded before
	ErrAlreadyClaimed = errors.New("deposit already claimed")
)

// Kind is the type of a bridging operation
type Kind string

const (
	KindDeposit            Kind = "deposit"
	KindWithdrawal         Kind = "withdrawal"
	KindTransfer           Kind = "transfer"
	KindFailedDepositClaim Kind = "failed_deposit_claim"
)

// State is the lifecycle state of a bridging operation
type State string

const (
	StateInitiated     State = "initiated"
	StateL1Committed   State = "l1_committed"
	StateL2Executing   State = "l2_executing"
	StateL2Succeeded   State = "l2_succeeded"
	StateL2Failed      State = "l2_failed"
	StateFinalized     State = "finalized"
	StateAwaitingClaim State = "awaiting_claim"
	StateClaimed       State = "claimed"
	StateL2Sealed      State = "l2_sealed"
	StateAwaitingProof State = "awaiting_proof"
	StateProofReady    State = "proof_ready"
	StateL1Finalized   State = "l1_finalized"
	StateExecuted      State = "executed"
)

// transitions lists the states reachable from each state, per kind
var transitions = map[Kind]map[State][]State{
	KindDeposit: {
		StateInitiated:     {StateL1Committed},
		StateL1Committed:   {StateL2Executing},
		StateL2Executing:   {StateL2Succeeded, StateL2Failed},
		StateL2Succeeded:   {StateFinalized},
		StateL2Failed:      {StateAwaitingClaim},
		StateAwaitingClaim: {StateClaimed},
	},
	KindWithdrawal: {
		StateInitiated:     {StateL2Sealed},
		StateL2Sealed:      {StateAwaitingProof},
		StateAwaitingProof: {StateProofReady},
		StateProofReady:    {StateL1Finalized},
	},
	KindTransfer: {
		StateInitiated:     {StateL2Sealed},
		StateL2Sealed:      {StateAwaitingProof},
		StateAwaitingProof: {StateProofReady},
		StateProofReady:    {StateExecuted},
	},
	KindFailedDepositClaim: {
		StateInitiated: {StateClaimed},
	},
}

// IsTerminal reports whether no transition leaves the state for the given kind
func IsTerminal(kind Kind, state State) bool {
	return len(transitions[kind][state]) == 0
}

// Operation is a bridging operation keyed by the hash of the transaction that started it
type Operation struct {
	Kind   Kind       `json:"kind"`
	Handle types.Hash `json:"handle"`
	State  State      `json:"state"`

	Sender   types.Address `json:"sender"`
	Receiver types.Address `json:"receiver"`
	Token    types.Address `json:"token"`
	Amount   *big.Int      `json:"amount"`

	SourceChainID      uint64 `json:"sourceChainId"`
	DestinationChainID uint64 `json:"destinationChainId"`

	// L2TxHash is the hash of the L2 transaction carrying the operation
	L2TxHash types.Hash `json:"l2TxHash"`
	// BatchNumber is the L2 batch including L2TxHash, set once the batch is sealed
	BatchNumber *uint64 `json:"batchNumber,omitempty"`
	// Proof is the inclusion proof of the message finishing the operation
	Proof *proof.InclusionProof `json:"proof,omitempty"`
	// Parent is the handle of the deposit a claim refers to
	Parent *types.Hash `json:"parent,omitempty"`

	History []State `json:"history"`
}

func (o *Operation) transition(to State) error {
	for _, allowed := range transitions[o.Kind][o.State] {
		if allowed == to {
			o.History = append(o.History, o.State)
			o.State = to

			return nil
		}
	}

	return fmt.Errorf("%w: %s %s cannot move from %s to %s", ErrInvalidTransition, o.Kind, o.Handle, o.State, to)
}

// onL1Confirmed records the confirmation of the deposit transaction on L1
func (o *Operation) onL1Confirmed() error {
	return o.transition(StateL1Committed)
}

// onL2Queued records that the destination chain picked the priority transaction up
func (o *Operation) onL2Queued() error {
	return o.transition(StateL2Executing)
}

// onL2Receipt records the outcome of the L2 execution of a deposit
func (o *Operation) onL2Receipt(receipt *Receipt) error {
	if receipt.Status == ReceiptFailed {
		return o.transition(StateL2Failed)
	}

	return o.transition(StateL2Succeeded)
}

// onSealed records the batch that includes the L2 transaction
func (o *Operation) onSealed(batchNumber uint64) error {
	if err := o.transition(StateL2Sealed); err != nil {
		return err
	}

	o.BatchNumber = &batchNumber

	return nil
}

// onFinalized records the batch that made a successful deposit final
func (o *Operation) onFinalized(batchNumber uint64) error {
	if err := o.transition(StateFinalized); err != nil {
		return err
	}

	o.BatchNumber = &batchNumber

	return nil
}

// onProof attaches the inclusion proof and moves to the state it unlocks
func (o *Operation) onProof(p *proof.InclusionProof) error {
	var to State

	switch o.Kind {
	case KindDeposit:
		to = StateAwaitingClaim
	default:
		to = StateProofReady
	}

	if err := o.transition(to); err != nil {
		return err
	}

	o.Proof = p

	return nil
}

func (o *Operation) copy() *Operation {
	oo := *o
	oo.History = append([]State(nil), o.History...)

	if o.Amount != nil {
		oo.Amount = new(big.Int).Set(o.Amount)
	}

	if o.BatchNumber != nil {
		n := *o.BatchNumber
		oo.BatchNumber = &n
	}

	return &oo
}
