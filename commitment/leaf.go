package commitment

import (
	"encoding/binary"

	"github.com/0xPolygon/interop-edge/crypto"
	"github.com/0xPolygon/interop-edge/helper/common"
	"github.com/0xPolygon/interop-edge/merkle"
	"github.com/0xPolygon/interop-edge/types"
)

var (
	// L1MessengerAddress is the system contract every L2 -> L1 message is logged by
	L1MessengerAddress = types.StringToAddress("0x8008")

	rootsAssignedTag = []byte("rootsAssigned")
)

// EncodeMessageLeaf encodes a message as an L2 -> L1 log:
//
//	shard (1) | isService (1) | txNumberInBatch (2) | messenger (20) | sender (32) | keccak(data) (32)
func EncodeMessageLeaf(msg *types.Message) []byte {
	buf := make([]byte, merkle.LeafSize)

	buf[0] = 0 // shard
	buf[1] = 1 // isService
	binary.BigEndian.PutUint16(buf[2:4], msg.TxNumberInBatch)
	copy(buf[4:24], L1MessengerAddress.Bytes())
	copy(buf[36:56], msg.Sender.Bytes())
	copy(buf[56:88], crypto.Keccak256(msg.Data))

	return buf
}

// MessageLeaf returns the leaf hash of a message
func MessageLeaf(msg *types.Message) types.Hash {
	return crypto.Keccak256Hash(EncodeMessageLeaf(msg))
}

// RootsAssignedHash is the rolling hash of the interop roots assigned to a block,
// the zero hash when the block consumed none
func RootsAssignedHash(refs []*types.InteropRootRef) types.Hash {
	rolling := types.ZeroHash

	for _, ref := range refs {
		rolling = crypto.Keccak256Hash(
			rolling.Bytes(),
			common.EncodeUint64ToBytes(ref.Key.SourceChainID),
			common.EncodeUint64ToBytes(ref.Key.BatchNumber),
			ref.Root.Bytes(),
		)
	}

	return rolling
}

// BlockMarker returns the "roots assigned" marker leaf of a block
func BlockMarker(block *types.Block) types.Hash {
	return crypto.Keccak256Hash(
		rootsAssignedTag,
		common.EncodeUint64ToBytes(block.Number),
		RootsAssignedHash(block.InteropRoots).Bytes(),
	)
}
