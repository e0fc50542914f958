package proof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/proof"
	"github.com/0xPolygon/interop-edge/types"
)

func TestGetParams_Validate(t *testing.T) {
	t.Parallel()

	p := &getParams{kindRaw: "interop"}
	require.ErrorIs(t, p.validateFlags(), errRefMissing)

	p = &getParams{
		kindRaw:     "direct",
		txHashRaw:   types.BytesToHash([]byte{1}).String(),
		hasPosition: true,
	}
	require.ErrorIs(t, p.validateFlags(), errRefConflict)

	p = &getParams{kindRaw: "sideways", hasPosition: true}
	require.Error(t, p.validateFlags())

	p = &getParams{kindRaw: "direct", chainID: 270, batch: 100, index: 3, hasPosition: true}
	require.NoError(t, p.validateFlags())
	require.Equal(t, proof.Direct, p.ref.Kind)
	require.Equal(t, &types.MessageRef{ChainID: 270, BatchNumber: 100, MessageIndex: 3}, p.ref.Position)
	require.NoError(t, p.ref.Validate())

	p = &getParams{kindRaw: "interop", txHashRaw: types.BytesToHash([]byte{1}).String()}
	require.NoError(t, p.validateFlags())
	require.Equal(t, proof.Interop, p.ref.Kind)
	require.Equal(t, types.BytesToHash([]byte{1}), p.ref.TxHash)
	require.NoError(t, p.ref.Validate())
}

func TestReadWriteProof(t *testing.T) {
	t.Parallel()

	p := &proof.InclusionProof{
		Kind:            proof.Interop,
		ChainID:         270,
		BatchNumber:     4,
		Message:         &types.Message{Sender: types.BytesToAddress([]byte{9}), Data: []byte{1, 2}},
		MessageProofLen: 1,
		Siblings:        []types.Hash{types.BytesToHash([]byte{7})},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "proof.json")

	require.NoError(t, writeProof(path, p))

	read, err := readProof(path)
	require.NoError(t, err)
	require.Equal(t, p, read)

	// the json output of "proof get" wraps the proof
	wrappedPath := filepath.Join(dir, "get.json")
	require.NoError(t, os.WriteFile(wrappedPath,
		[]byte(`{"status":"ready","proof":{"kind":"direct","chainId":271,"batchNumber":2,`+
			`"messageIndex":0,"message":null,"messageProofLen":0,"batchProofLen":0,"siblings":[]}}`), 0600))

	read, err = readProof(wrappedPath)
	require.NoError(t, err)
	require.Equal(t, proof.Direct, read.Kind)
	require.Equal(t, uint64(271), read.ChainID)
}
