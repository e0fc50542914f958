package keccak

import (
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeccak256_KnownVectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{"", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"abc", "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}

	for _, c := range cases {
		require.Equal(t, c.expected, hex.EncodeToString(Keccak256(nil, []byte(c.input))))
	}
}

func TestKeccak256Concat_MatchesSingleWrite(t *testing.T) {
	t.Parallel()

	a, b := []byte("hello "), []byte("world")

	require.Equal(t,
		Keccak256(nil, append(append([]byte{}, a...), b...)),
		Keccak256Concat(nil, a, b),
	)
}

func TestPool_Concurrent(t *testing.T) {
	t.Parallel()

	expected := Keccak256(nil, []byte("abc"))

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				assert.Equal(t, expected, Keccak256(nil, []byte("abc")))
			}
		}()
	}

	wg.Wait()
}
