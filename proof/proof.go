package proof

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/interop-edge/aggregator"
	"github.com/0xPolygon/interop-edge/commitment"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// ErrBatchNotFinalized is returned while the batch or its global anchor is not committed yet.
	// It is retryable.
	ErrBatchNotFinalized = errors.New("batch not finalized")
	// ErrRootNotDelivered is returned while the destination chain holds the zero interop root.
	// It is retryable.
	ErrRootNotDelivered = errors.New("interop root not delivered")
	// ErrNotFound is returned for unknown transactions and batches
	ErrNotFound = errors.New("message not found")
	// ErrMalformedRef is returned for references that can never resolve to a message
	ErrMalformedRef = errors.New("malformed message reference")
	// ErrMalformedProof is returned when the sibling segments of a proof are inconsistent
	ErrMalformedProof = errors.New("malformed inclusion proof")
)

func init() {
	poll.RegisterRetryable(ErrBatchNotFinalized, ErrRootNotDelivered)
}

// Kind is the flavor of an inclusion proof
type Kind uint8

const (
	// Direct proofs stop at the chain root and are verified against the root recorded on L1
	Direct Kind = iota
	// Interop proofs continue up to the network root and are verified against an interop root
	// held by the destination chain
	Interop
)

var kindNames = map[Kind]string{
	Direct:  "direct",
	Interop: "interop",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown proof kind %d", k)
	}

	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(input []byte) error {
	for kind, name := range kindNames {
		if name == string(input) {
			*k = kind

			return nil
		}
	}

	return fmt.Errorf("unknown proof kind %q", input)
}

// Ref references a message either by the hash of the transaction that emitted it
// or by its position
type Ref struct {
	Kind     Kind              `json:"kind"`
	TxHash   types.Hash        `json:"txHash,omitempty"`
	Position *types.MessageRef `json:"position,omitempty"`
}

// Validate rejects references that can never resolve
func (r *Ref) Validate() error {
	if _, ok := kindNames[r.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedRef, r.Kind)
	}

	hasTx := r.TxHash != types.ZeroHash
	if hasTx == (r.Position != nil) {
		return fmt.Errorf("%w: exactly one of tx hash and position is required", ErrMalformedRef)
	}

	return nil
}

// InclusionProof is a self contained proof that a message was emitted by a chain.
// Siblings holds three segments in order: message leaf to batch root, batch root to chain
// root and, for interop proofs, chain root leaf to network root.
type InclusionProof struct {
	Kind         Kind           `json:"kind"`
	ChainID      uint64         `json:"chainId"`
	BatchNumber  uint64         `json:"batchNumber"`
	MessageIndex uint64         `json:"messageIndex"`
	Message      *types.Message `json:"message"`

	MessageProofLen int `json:"messageProofLen"`
	BatchProofLen   int `json:"batchProofLen"`

	// SettlementBlock and GlobalIndex locate the chain root in the network tree. Interop only.
	SettlementBlock uint64 `json:"settlementBlock,omitempty"`
	GlobalIndex     uint64 `json:"globalIndex,omitempty"`

	Siblings []types.Hash `json:"siblings"`
}

// Key returns the interop root key the proof is checked against
func (p *InclusionProof) Key() types.InteropRootKey {
	return types.InteropRootKey{SourceChainID: p.ChainID, BatchNumber: p.BatchNumber}
}

// ComputeRoot folds the message leaf with the siblings and returns the chain root for
// direct proofs or the network root for interop proofs. It is the only implementation of
// the folding rule and every verifier goes through it.
func ComputeRoot(p *InclusionProof) (types.Hash, error) {
	if p == nil || p.Message == nil {
		return types.ZeroHash, fmt.Errorf("%w: missing message", ErrMalformedProof)
	}

	if p.MessageProofLen < 0 || p.BatchProofLen < 0 || p.MessageProofLen+p.BatchProofLen > len(p.Siblings) {
		return types.ZeroHash, fmt.Errorf("%w: segments %d+%d over %d siblings",
			ErrMalformedProof, p.MessageProofLen, p.BatchProofLen, len(p.Siblings))
	}

	local := p.MessageProofLen + p.BatchProofLen

	switch p.Kind {
	case Direct:
		if local != len(p.Siblings) {
			return types.ZeroHash, fmt.Errorf("%w: direct proof carries a global segment", ErrMalformedProof)
		}
	case Interop:
	default:
		return types.ZeroHash, fmt.Errorf("%w: unknown kind %d", ErrMalformedProof, p.Kind)
	}

	batchRoot, err := merkle.Fold(p.MessageIndex, commitment.MessageLeaf(p.Message), p.Siblings[:p.MessageProofLen])
	if err != nil {
		return types.ZeroHash, err
	}

	chainRoot, err := merkle.Fold(p.BatchNumber, batchRoot, p.Siblings[p.MessageProofLen:local])
	if err != nil {
		return types.ZeroHash, err
	}

	if p.Kind == Direct {
		return chainRoot, nil
	}

	return merkle.Fold(p.GlobalIndex, aggregator.NetworkLeaf(p.ChainID, chainRoot), p.Siblings[local:])
}

// Verify reports whether the proof folds to expectedRoot. It has no side effects.
func Verify(p *InclusionProof, expectedRoot types.Hash) bool {
	root, err := ComputeRoot(p)
	if err != nil {
		return false
	}

	return root == expectedRoot
}

// ChainRootSource returns the chain roots recorded on L1 for executed batches
type ChainRootSource interface {
	ChainRootAt(chainID, batchNumber uint64) (types.Hash, error)
}

// InteropRootReader is the read side of a destination chain interop root store
type InteropRootReader interface {
	Get(key types.InteropRootKey) types.Hash
}

// VerifyDirect checks a direct proof against the chain root recorded on L1
func VerifyDirect(p *InclusionProof, roots ChainRootSource) error {
	if p.Kind != Direct {
		return fmt.Errorf("%w: %s proof verified as direct", ErrMalformedProof, p.Kind)
	}

	expected, err := roots.ChainRootAt(p.ChainID, p.BatchNumber)
	if err != nil {
		return err
	}

	if !Verify(p, expected) {
		return fmt.Errorf("%w: chain %d batch %d", merkle.ErrRootMismatch, p.ChainID, p.BatchNumber)
	}

	return nil
}

// VerifyInterop checks an interop proof against the interop root delivered to the
// destination chain. A zero root means not delivered yet.
func VerifyInterop(p *InclusionProof, store InteropRootReader) error {
	if p.Kind != Interop {
		return fmt.Errorf("%w: %s proof verified as interop", ErrMalformedProof, p.Kind)
	}

	expected := store.Get(p.Key())
	if expected == types.ZeroHash {
		return fmt.Errorf("%w: %s", ErrRootNotDelivered, p.Key())
	}

	if !Verify(p, expected) {
		return fmt.Errorf("%w: interop root %s", merkle.ErrRootMismatch, p.Key())
	}

	return nil
}
