package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/types"
)

func TestKeccak256Hash(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		types.StringToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		Keccak256Hash(),
	)

	require.Equal(t, Keccak256([]byte("ab"), []byte("c")), Keccak256Hash([]byte("abc")).Bytes())
}
