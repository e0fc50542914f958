package helper

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/interop-edge/types"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      string
		expected *big.Int
	}{
		{"10", big.NewInt(10)},
		{"0x10", big.NewInt(16)},
		{"1000000000000000000000", new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)},
	}

	for _, c := range cases {
		amount, err := ParseAmount(c.raw)
		require.NoError(t, err)
		require.Zero(t, c.expected.Cmp(amount), c.raw)
	}

	for _, raw := range []string{"", "0", "-1", "abc", "0xzz"} {
		_, err := ParseAmount(raw)
		require.ErrorIs(t, err, errInvalidAmount, raw)
	}
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Equal(t, types.BytesToAddress([]byte{1}), addr)

	_, err = ParseAddress("0x01")
	require.Error(t, err)

	_, err = ParseAddress("0xzz00000000000000000000000000000000000001")
	require.Error(t, err)
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	hash, err := ParseHash("0x0000000000000000000000000000000000000000000000000000000000000002")
	require.NoError(t, err)
	require.Equal(t, types.BytesToHash([]byte{2}), hash)

	_, err = ParseHash("0x02")
	require.Error(t, err)
}

func TestResolveAddr(t *testing.T) {
	t.Parallel()

	addr, err := ResolveAddr(":8545")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8545", addr.String())

	_, err = ResolveAddr("not an address")
	require.Error(t, err)
}

func TestFormatKV(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Chain = 270\nRoot  = <none>", FormatKV([]string{"Chain|270", "Root|"}))
}
