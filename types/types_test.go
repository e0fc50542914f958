package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_TextRoundTrip(t *testing.T) {
	t.Parallel()

	h := StringToHash("0x1234")
	require.Equal(t, byte(0x12), h[30])
	require.Equal(t, byte(0x34), h[31])

	raw, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded Hash
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, h, decoded)

	var addr Address
	require.Error(t, addr.UnmarshalText([]byte("0x1234")))
	require.NoError(t, addr.UnmarshalText([]byte("0x000000000000000000000000000000000000800a")))
	require.Equal(t, StringToAddress("0x800a"), addr)
}

func TestBatch_RLP(t *testing.T) {
	t.Parallel()

	batch := &Batch{
		ChainID: 270,
		Number:  100,
		Blocks: []*Block{
			{
				Number: 7,
				Messages: []*Message{
					{Sender: StringToAddress("0x1"), Data: []byte{1, 2, 3}, TxNumberInBatch: 0, TxHash: StringToHash("0xaa")},
					{Sender: StringToAddress("0x2"), Data: nil, TxNumberInBatch: 1, TxHash: StringToHash("0xbb")},
				},
			},
			{
				Number: 8,
				InteropRoots: []*InteropRootRef{
					{Key: InteropRootKey{SourceChainID: 271, BatchNumber: 3}, Root: StringToHash("0xcc")},
				},
			},
		},
		Root:            StringToHash("0xdd"),
		LocalMerklePath: []Hash{StringToHash("0xee")},
	}

	decoded := &Batch{}
	require.NoError(t, decoded.UnmarshalRLP(batch.MarshalRLPTo(nil)))

	assert.Equal(t, batch.ChainID, decoded.ChainID)
	assert.Equal(t, batch.Number, decoded.Number)
	assert.Equal(t, batch.Root, decoded.Root)
	require.Len(t, decoded.Blocks, 2)
	assert.Len(t, decoded.Messages(), 2)
	assert.Equal(t, batch.Blocks[0].Messages[0], decoded.Blocks[0].Messages[0])
	assert.Empty(t, decoded.Blocks[0].Messages[1].Data)
	assert.Equal(t, batch.Blocks[1].InteropRoots, decoded.Blocks[1].InteropRoots)

	// paths live in their own columns
	assert.Nil(t, decoded.LocalMerklePath)
	assert.Nil(t, decoded.GlobalMerklePath)
}

func TestSettlementBlock_RLP(t *testing.T) {
	t.Parallel()

	block := &SettlementBlock{
		Number: 4,
		Leaves: Publications{
			{ChainID: 270, BatchNumber: 1, ChainRoot: StringToHash("0x01")},
			{ChainID: 271, BatchNumber: 9, ChainRoot: StringToHash("0x02")},
		},
		NetworkRoot: StringToHash("0x03"),
		Finalized:   true,
	}

	decoded := &SettlementBlock{}
	require.NoError(t, decoded.UnmarshalRLP(block.MarshalRLPTo(nil)))
	require.Equal(t, block, decoded)

	block.Finalized = false
	block.Leaves = Publications{}
	decoded = &SettlementBlock{}
	require.NoError(t, decoded.UnmarshalRLP(block.MarshalRLPTo(nil)))
	require.False(t, decoded.Finalized)
	require.Empty(t, decoded.Leaves)
}

func TestGlobalPath_Equal(t *testing.T) {
	t.Parallel()

	a := &GlobalPath{SettlementBlock: 1, LeafIndex: 2, Siblings: []Hash{StringToHash("0x1")}, NetworkRoot: StringToHash("0x2")}
	b := &GlobalPath{SettlementBlock: 1, LeafIndex: 2, Siblings: []Hash{StringToHash("0x1")}, NetworkRoot: StringToHash("0x2")}

	require.True(t, a.Equal(b))

	b.Siblings[0] = StringToHash("0x3")
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(nil))
	require.True(t, (*GlobalPath)(nil).Equal(nil))

	decoded := &GlobalPath{}
	require.NoError(t, decoded.UnmarshalRLP(a.MarshalRLPTo(nil)))
	require.True(t, a.Equal(decoded))
}
