package commitment

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/types"
)

func newTestBuilder(t require.TestingT) *Builder {
	b, err := NewBuilder(hclog.NewNullLogger(), 8)
	require.NoError(t, err)

	return b
}

func genBatch(t *rapid.T) *types.Batch {
	blocks := rapid.IntRange(1, 5).Draw(t, "blocks")
	batch := &types.Batch{
		ChainID: rapid.Uint64Range(1, 1000).Draw(t, "chain"),
		Number:  rapid.Uint64Range(0, 1<<20).Draw(t, "number"),
	}

	txNumber := uint16(0)

	for i := 0; i < blocks; i++ {
		block := &types.Block{Number: uint64(i + 1)}
		messages := rapid.IntRange(0, 6).Draw(t, "messages")

		for j := 0; j < messages; j++ {
			block.Messages = append(block.Messages, &types.Message{
				Sender:          types.BytesToAddress(rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "sender")),
				Data:            rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "data"),
				TxNumberInBatch: txNumber,
			})
			txNumber++
		}

		if rapid.Bool().Draw(t, "assigned") {
			block.InteropRoots = []*types.InteropRootRef{{
				Key:  types.InteropRootKey{SourceChainID: 9, BatchNumber: uint64(i)},
				Root: crypto.Keccak256Hash([]byte{byte(i)}),
			}}
		}

		batch.Blocks = append(batch.Blocks, block)
	}

	return batch
}

func TestEncodeMessageLeaf_Layout(t *testing.T) {
	t.Parallel()

	msg := &types.Message{
		Sender:          types.StringToAddress("0x1234"),
		Data:            []byte("payload"),
		TxNumberInBatch: 0x0102,
	}

	leaf := EncodeMessageLeaf(msg)
	require.Len(t, leaf, merkle.LeafSize)

	assert.Equal(t, byte(0), leaf[0])
	assert.Equal(t, byte(1), leaf[1])
	assert.Equal(t, []byte{0x01, 0x02}, leaf[2:4])
	assert.Equal(t, L1MessengerAddress.Bytes(), leaf[4:24])
	assert.Equal(t, make([]byte, 12), leaf[24:36])
	assert.Equal(t, msg.Sender.Bytes(), leaf[36:56])
	assert.Equal(t, crypto.Keccak256([]byte("payload")), leaf[56:88])
}

func TestComputeLocalPath_Deterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(tt *rapid.T) {
		batch := genBatch(tt)
		messages := batch.Messages()

		if len(messages) == 0 {
			_, _, err := newTestBuilder(tt).ComputeLocalPath(batch, 0)
			require.True(tt, errors.Is(err, ErrOutOfRangeIndex))

			return
		}

		index := rapid.Uint64Range(0, uint64(len(messages)-1)).Draw(tt, "index")

		// two independent builders, one of them seeing a copy of the batch
		first := newTestBuilder(tt)
		root1, path1, err := first.ComputeLocalPath(batch, index)
		require.NoError(tt, err)

		root2, path2, err := first.ComputeLocalPath(batch, index)
		require.NoError(tt, err)

		clone := &types.Batch{ChainID: batch.ChainID, Number: batch.Number}
		for _, block := range batch.Blocks {
			cb := &types.Block{Number: block.Number, InteropRoots: block.InteropRoots}
			for _, msg := range block.Messages {
				cb.Messages = append(cb.Messages, msg.Copy())
			}

			clone.Blocks = append(clone.Blocks, cb)
		}

		root3, path3, err := newTestBuilder(tt).ComputeLocalPath(clone, index)
		require.NoError(tt, err)

		require.Equal(tt, root1, root2)
		require.Equal(tt, root1, root3)
		require.Equal(tt, path1, path2)
		require.Equal(tt, path1, path3)

		require.NoError(tt, merkle.VerifyProof(index, MessageLeaf(messages[index]), path1, root1))

		_, _, err = first.ComputeLocalPath(batch, uint64(len(messages)))
		require.True(tt, errors.Is(err, ErrOutOfRangeIndex))
	})
}

func TestBuilder_SealAndBuild(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	batch := &types.Batch{
		ChainID: 270,
		Number:  100,
		Blocks: []*types.Block{
			{Number: 1, Messages: []*types.Message{{Sender: types.StringToAddress("0x1"), Data: []byte{1}}}},
			{Number: 2},
		},
	}

	c, err := b.Seal(batch)
	require.NoError(t, err)
	require.Equal(t, c.Root, batch.Root)
	require.Len(t, c.Markers, 2)
	require.Equal(t, 1, c.MessageCount)

	// leaves: message, marker 1, marker 2, padding
	expected := merkle.HashPair(
		merkle.HashPair(MessageLeaf(batch.Blocks[0].Messages[0]), BlockMarker(batch.Blocks[0])),
		merkle.HashPair(BlockMarker(batch.Blocks[1]), merkle.ZeroLeaf),
	)
	require.Equal(t, expected, batch.Root)

	_, err = b.Seal(batch)
	require.Error(t, err)

	// a tampered batch does not match its sealed root
	tampered := *batch
	tampered.Number = 101
	tampered.Blocks = []*types.Block{{Number: 1}}
	_, err = b.Build(&tampered)
	require.True(t, errors.Is(err, ErrRootMismatch))
}

func TestBlockMarker_CommitsToAssignedRoots(t *testing.T) {
	t.Parallel()

	block := &types.Block{Number: 5}
	empty := BlockMarker(block)

	require.Equal(t, types.ZeroHash, RootsAssignedHash(nil))

	block.InteropRoots = []*types.InteropRootRef{
		{Key: types.InteropRootKey{SourceChainID: 1, BatchNumber: 2}, Root: types.StringToHash("0xff")},
	}
	require.NotEqual(t, empty, BlockMarker(block))

	other := &types.Block{Number: 6}
	require.NotEqual(t, empty, BlockMarker(other))
}
