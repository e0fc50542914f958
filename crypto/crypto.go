package crypto

import (
	"github.com/0xPolygon/interop-edge/helper/keccak"
	"github.com/0xPolygon/interop-edge/types"
)

// Keccak256 calculates the Keccak256
func Keccak256(v ...[]byte) []byte {
	return keccak.Keccak256Concat(nil, v...)
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(v ...[]byte) types.Hash {
	return types.BytesToHash(keccak.Keccak256Concat(nil, v...))
}
