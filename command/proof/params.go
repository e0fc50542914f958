package proof

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/0xPolygon/interop-edge/command/helper"
	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

const (
	chainIDFlag     = "chain-id"
	txHashFlag      = "tx-hash"
	batchFlag       = "batch"
	indexFlag       = "index"
	kindFlag        = "kind"
	outFlag         = "out"
	fileFlag        = "file"
	destinationFlag = "destination"

	getInclusionProofFn = "interop_getInclusionProof"
	verifyProofFn       = "interop_verifyProof"
)

var (
	errRefMissing  = errors.New("either the tx hash or the batch and the index are required")
	errRefConflict = errors.New("tx hash and batch position are mutually exclusive")
)

type getParams struct {
	chainID    uint64
	txHashRaw  string
	batch      uint64
	index      uint64
	kindRaw    string
	outputPath string

	hasPosition bool
	ref         proof.Ref
}

func (gp *getParams) validateFlags() error {
	if gp.txHashRaw == "" && !gp.hasPosition {
		return errRefMissing
	}

	if gp.txHashRaw != "" && gp.hasPosition {
		return errRefConflict
	}

	if err := gp.ref.Kind.UnmarshalText([]byte(gp.kindRaw)); err != nil {
		return err
	}

	if gp.txHashRaw != "" {
		txHash, err := helper.ParseHash(gp.txHashRaw)
		if err != nil {
			return err
		}

		gp.ref.TxHash = txHash

		return nil
	}

	gp.ref.Position = &types.MessageRef{
		ChainID:      gp.chainID,
		BatchNumber:  gp.batch,
		MessageIndex: gp.index,
	}

	return nil
}

type verifyParams struct {
	proofPath   string
	destination uint64
}

func readProof(path string) (*proof.InclusionProof, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// accept both a bare proof and the output of "proof get --json"
	var wrapped struct {
		Proof *proof.InclusionProof `json:"proof"`
	}

	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Proof != nil {
		return wrapped.Proof, nil
	}

	var p proof.InclusionProof
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}

	return &p, nil
}

func writeProof(path string, p *proof.InclusionProof) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, raw, 0600)
}
