package bridge

import (
	"fmt"
	"math/big"

	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

// ReceiptStatus is the execution status of an L2 transaction
type ReceiptStatus uint8

const (
	// ReceiptQueued means the transaction is known to the chain but not executed yet
	ReceiptQueued ReceiptStatus = iota
	ReceiptSucceeded
	ReceiptFailed
)

// Receipt is the L2 view of a transaction
type Receipt struct {
	TxHash types.Hash
	Status ReceiptStatus
	// Sealed is set once the batch including the transaction is sealed and appended to the chain root
	Sealed      bool
	BatchNumber uint64
}

// ProofSource serves the inclusion proofs of one chain
type ProofSource interface {
	GetInclusionProof(ref proof.Ref) proof.Result
}

// L1Gateway is the L1 hub as seen by the coordinator
type L1Gateway interface {
	proof.ChainRootSource

	// Deposit locks the funds of a deposit and enqueues its priority transaction.
	// It returns the hash of the L1 transaction.
	Deposit(req *DepositRequest) (types.Hash, error)
	// IsConfirmed reports whether an L1 transaction is confirmed
	IsConfirmed(txHash types.Hash) (bool, error)
	// FinalizeWithdrawal pays a withdrawal out given the direct proof of its message
	FinalizeWithdrawal(p *proof.InclusionProof) error
	// ClaimFailedDeposit refunds a failed deposit given the direct proof of its failure status.
	// A deposit refunded before yields ErrAlreadyClaimed.
	ClaimFailedDeposit(depositTxHash types.Hash, p *proof.InclusionProof) (*big.Int, error)
}

// L2Gateway is one L2 chain as seen by the coordinator
type L2Gateway interface {
	ChainID() uint64
	// Receipt returns the receipt of a transaction, nil while the chain does not know it
	Receipt(txHash types.Hash) (*Receipt, error)
	// Withdraw burns the funds of a withdrawal and emits its message. It returns the L2 tx hash.
	Withdraw(req *WithdrawalRequest) (types.Hash, error)
	// Transfer burns the funds of a transfer and emits its interop message. It returns the L2 tx hash.
	Transfer(req *TransferRequest) (types.Hash, error)
	// ExecuteInterop mints the funds of a transfer given the interop proof of its message
	ExecuteInterop(p *proof.InclusionProof) error
	Proofs() ProofSource
	// InteropRoots is the interop root store the chain verifies incoming messages against
	InteropRoots() proof.InteropRootReader
}

// DepositRequest moves funds from L1 to an L2 chain
type DepositRequest struct {
	ChainID  uint64        `json:"chainId"`
	Sender   types.Address `json:"sender"`
	Receiver types.Address `json:"receiver"`
	Token    types.Address `json:"token"`
	Amount   *big.Int      `json:"amount"`
	// FailOnL2 makes the priority transaction revert on L2, used to exercise the claim flow
	FailOnL2 bool `json:"failOnL2,omitempty"`
}

// WithdrawalRequest moves funds from an L2 chain to L1
type WithdrawalRequest struct {
	ChainID  uint64        `json:"chainId"`
	Sender   types.Address `json:"sender"`
	Receiver types.Address `json:"receiver"`
	Token    types.Address `json:"token"`
	Amount   *big.Int      `json:"amount"`
}

// TransferRequest moves funds between two L2 chains through the settlement layer
type TransferRequest struct {
	SourceChainID      uint64        `json:"sourceChainId"`
	DestinationChainID uint64        `json:"destinationChainId"`
	Sender             types.Address `json:"sender"`
	Receiver           types.Address `json:"receiver"`
	Token              types.Address `json:"token"`
	Amount             *big.Int      `json:"amount"`
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrMalformedRequest)
	}

	return nil
}

func (r *DepositRequest) validate() error {
	return validateAmount(r.Amount)
}

func (r *WithdrawalRequest) validate() error {
	return validateAmount(r.Amount)
}

func (r *TransferRequest) validate() error {
	if r.SourceChainID == r.DestinationChainID {
		return fmt.Errorf("%w: transfer to the source chain %d", ErrMalformedRequest, r.SourceChainID)
	}

	return validateAmount(r.Amount)
}
