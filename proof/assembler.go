package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/interop-edge/aggregator"
	"github.com/0xPolygon/interop-edge/commitment"
	"github.com/0xPolygon/interop-edge/poll"
	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

// GlobalPathSource returns the global path of a chain root once its settlement block is final
type GlobalPathSource interface {
	GlobalPath(chainID, batchNumber uint64) (*types.GlobalPath, error)
}

// Status is the outcome of an inclusion proof query
type Status uint8

const (
	StatusReady Status = iota
	// StatusPending means an upstream chain has not advanced far enough yet
	StatusPending
	StatusNotFound
	// StatusInvalid means the request can never be served
	StatusInvalid
	// StatusFailed means the query failed for an internal reason
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusPending:
		return "pending"
	case StatusNotFound:
		return "not found"
	case StatusInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

// Result is the answer to an inclusion proof query
type Result struct {
	Status Status
	Proof  *InclusionProof
	Err    error
}

// Assembler builds inclusion proofs for the messages of one chain out of the batch
// commitments, the chain root accumulator paths and the global paths of the settlement layer
type Assembler struct {
	logger  hclog.Logger
	storage storage.Storage
	builder *commitment.Builder
	global  GlobalPathSource
}

// NewAssembler creates an assembler reading from the chain storage. global may be nil
// for a chain that only produces direct proofs.
func NewAssembler(store storage.Storage, builder *commitment.Builder, global GlobalPathSource,
	logger hclog.Logger) *Assembler {
	return &Assembler{
		logger:  logger.Named("proof_assembler"),
		storage: store,
		builder: builder,
		global:  global,
	}
}

// Resolve returns the position of the referenced message
func (a *Assembler) Resolve(ref Ref) (*types.MessageRef, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if ref.Position != nil {
		return ref.Position, nil
	}

	position, err := a.storage.ReadTxLookup(ref.TxHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, ref.TxHash)
	}

	return position, err
}

// Assemble builds the inclusion proof of the referenced message. It fails with
// ErrBatchNotFinalized while the batch is not appended to the chain root or, for interop
// proofs, while its settlement block is not final.
func (a *Assembler) Assemble(ref Ref) (*InclusionProof, error) {
	position, err := a.Resolve(ref)
	if err != nil {
		return nil, err
	}

	batch, err := a.storage.ReadBatch(position.ChainID, position.BatchNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: batch %d of chain %d", ErrNotFound, position.BatchNumber, position.ChainID)
	} else if err != nil {
		return nil, err
	}

	batchRoot, messagePath, err := a.builder.ComputeLocalPath(batch, position.MessageIndex)
	if err != nil {
		return nil, err
	}

	if batch.LocalMerklePath == nil {
		return nil, fmt.Errorf("%w: batch %d of chain %d has no chain root yet",
			ErrBatchNotFinalized, batch.Number, batch.ChainID)
	}

	messages := batch.Messages()

	p := &InclusionProof{
		Kind:            ref.Kind,
		ChainID:         batch.ChainID,
		BatchNumber:     batch.Number,
		MessageIndex:    position.MessageIndex,
		Message:         messages[position.MessageIndex].Copy(),
		MessageProofLen: len(messagePath),
		BatchProofLen:   len(batch.LocalMerklePath),
	}

	p.Siblings = make([]types.Hash, 0, len(messagePath)+len(batch.LocalMerklePath))
	p.Siblings = append(p.Siblings, messagePath...)
	p.Siblings = append(p.Siblings, batch.LocalMerklePath...)

	expected, err := a.storage.ReadChainRoot(batch.ChainID, batch.Number)
	if err != nil {
		return nil, err
	}

	if ref.Kind == Interop {
		global, err := a.globalPath(batch)
		if err != nil {
			return nil, err
		}

		p.SettlementBlock = global.SettlementBlock
		p.GlobalIndex = global.LeafIndex
		p.Siblings = append(p.Siblings, global.Siblings...)
		expected = global.NetworkRoot
	}

	// the stored paths must agree with the batch root the message commits to
	if root, err := ComputeRoot(p); err != nil {
		return nil, err
	} else if root != expected {
		return nil, fmt.Errorf("assembled proof of batch %d (root %s) does not match committed root %s",
			batch.Number, batchRoot, expected)
	}

	a.logger.Debug("inclusion proof assembled", "kind", p.Kind, "chain", p.ChainID, "batch", p.BatchNumber,
		"index", p.MessageIndex, "siblings", len(p.Siblings))

	return p, nil
}

// globalPath returns the global path of a batch, fetching it from the settlement layer
// and persisting it the first time it is available
func (a *Assembler) globalPath(batch *types.Batch) (*types.GlobalPath, error) {
	if batch.GlobalMerklePath != nil {
		return batch.GlobalMerklePath, nil
	}

	if a.global == nil {
		return nil, fmt.Errorf("%w: no settlement layer for chain %d", ErrBatchNotFinalized, batch.ChainID)
	}

	path, err := a.global.GlobalPath(batch.ChainID, batch.Number)
	if errors.Is(err, aggregator.ErrBatchNotFinalized) {
		return nil, fmt.Errorf("%w: %w", ErrBatchNotFinalized, err)
	} else if err != nil {
		return nil, err
	}

	if err := a.storage.WriteGlobalMerklePath(batch.ChainID, batch.Number, path); err != nil {
		return nil, fmt.Errorf("failed to persist global path of batch %d: %w", batch.Number, err)
	}

	return path, nil
}

// GetInclusionProof is the query API: it never blocks and classifies the outcome
func (a *Assembler) GetInclusionProof(ref Ref) Result {
	p, err := a.Assemble(ref)

	switch {
	case err == nil:
		return Result{Status: StatusReady, Proof: p}
	case poll.IsRetryable(err):
		return Result{Status: StatusPending, Err: err}
	case errors.Is(err, ErrNotFound):
		return Result{Status: StatusNotFound, Err: err}
	case errors.Is(err, ErrMalformedRef), errors.Is(err, commitment.ErrOutOfRangeIndex):
		return Result{Status: StatusInvalid, Err: err}
	default:
		a.logger.Error("failed to assemble inclusion proof", "err", err)

		return Result{Status: StatusFailed, Err: err}
	}
}

// WaitForProof polls the assembler until the proof is ready, the error is not retryable
// or the policy is exhausted
func WaitForProof(ctx context.Context, a *Assembler, ref Ref, policy poll.Policy) (*InclusionProof, error) {
	var p *InclusionProof

	err := poll.Do(ctx, policy, func(context.Context) error {
		var err error

		p, err = a.Assemble(ref)

		return err
	})

	return p, err
}
