package jsonrpc

import (
	"errors"

	"github.com/0xPolygon/interop-edge/interop"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

var errMissingParam = errors.New("missing parameter")

// interopStore is the read side of the chains of the network
type interopStore interface {
	// GetInclusionProof assembles the proof of a message emitted by chainID
	GetInclusionProof(chainID uint64, ref proof.Ref) (proof.Result, error)
	// VerifyProof checks a direct proof against L1, an interop proof against the
	// interop root store of destination
	VerifyProof(p *proof.InclusionProof, destination uint64) error
	GetChainRoot(chainID, height uint64) (types.Hash, error)
	GetInteropRoot(destination uint64, key types.InteropRootKey) (types.Hash, error)
	GetHalted(destination uint64) (map[uint64]interop.Halt, error)
	Resume(destination, source uint64) error
}

// Interop is the interop jsonrpc endpoint
type Interop struct {
	store interopStore
}

// ProofResponse is the answer to interop_getInclusionProof
type ProofResponse struct {
	Status string                `json:"status"`
	Proof  *proof.InclusionProof `json:"proof,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// VerifyResponse is the answer to interop_verifyProof
type VerifyResponse struct {
	Valid bool       `json:"valid"`
	Root  types.Hash `json:"root"`
	Error string     `json:"error,omitempty"`
}

// GetInclusionProof returns the inclusion proof of a message. Pending and not found
// are reported in the status, not as errors.
func (i *Interop) GetInclusionProof(chainID argUint64, ref *proof.Ref) (interface{}, error) {
	if ref == nil {
		return nil, errMissingParam
	}

	res, err := i.store.GetInclusionProof(uint64(chainID), *ref)
	if err != nil {
		return nil, err
	}

	resp := &ProofResponse{Status: res.Status.String(), Proof: res.Proof}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	return resp, nil
}

// VerifyProof verifies an inclusion proof. The destination chain is required for interop proofs.
func (i *Interop) VerifyProof(p *proof.InclusionProof, destination *argUint64) (interface{}, error) {
	if p == nil {
		return nil, errMissingParam
	}

	var dest uint64
	if destination != nil {
		dest = uint64(*destination)
	}

	root, err := proof.ComputeRoot(p)
	if err != nil {
		return &VerifyResponse{Error: err.Error()}, nil
	}

	if err := i.store.VerifyProof(p, dest); err != nil {
		return &VerifyResponse{Root: root, Error: err.Error()}, nil
	}

	return &VerifyResponse{Valid: true, Root: root}, nil
}

// GetChainRoot returns the chain root of a chain at a batch height
func (i *Interop) GetChainRoot(chainID, height argUint64) (interface{}, error) {
	return i.store.GetChainRoot(uint64(chainID), uint64(height))
}

// GetInteropRoot returns the interop root of (source, batch) as seen by destination,
// the zero hash while not delivered
func (i *Interop) GetInteropRoot(destination, source, batchNumber argUint64) (interface{}, error) {
	return i.store.GetInteropRoot(uint64(destination), types.InteropRootKey{
		SourceChainID: uint64(source),
		BatchNumber:   uint64(batchNumber),
	})
}

// GetHaltedSources returns the sources halted by a root conflict on destination
func (i *Interop) GetHaltedSources(destination argUint64) (interface{}, error) {
	return i.store.GetHalted(uint64(destination))
}

// ResumeSource clears a conflict halt of source on destination
func (i *Interop) ResumeSource(destination, source argUint64) (interface{}, error) {
	if err := i.store.Resume(uint64(destination), uint64(source)); err != nil {
		return nil, err
	}

	return true, nil
}
