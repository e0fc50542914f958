package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeUint64ToBytes(t *testing.T) {
	t.Parallel()

	for _, v := range []uint64{0, 1, 255, 256, 1 << 40, ^uint64(0)} {
		b := EncodeUint64ToBytes(v)
		require.Len(t, b, 8)
		require.Equal(t, v, EncodeBytesToUint64(b))
	}

	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, EncodeUint64ToBytes(256))
	require.Equal(t, uint64(3), Min(3, 7))
}

func TestSetupDataDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")

	require.NoError(t, SetupDataDir(dir, []string{"blockchain", "interop"}))
	require.DirExists(t, filepath.Join(dir, "blockchain"))
	require.DirExists(t, filepath.Join(dir, "interop"))

	// second call is a no-op
	require.NoError(t, SetupDataDir(dir, []string{"blockchain"}))
}
