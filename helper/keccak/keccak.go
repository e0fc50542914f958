package keccak

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// Keccak is the legacy (pre-standard) keccak-256 hash
type Keccak struct {
	hash hash.Hash
}

// NewKeccak256 returns a new keccak 256
func NewKeccak256() *Keccak {
	return &Keccak{hash: sha3.NewLegacyKeccak256()}
}

// Write implements the hash interface
func (k *Keccak) Write(b []byte) (int, error) {
	return k.hash.Write(b)
}

// Reset implements the hash interface
func (k *Keccak) Reset() {
	k.hash.Reset()
}

// Sum implements the hash interface
func (k *Keccak) Sum(dst []byte) []byte {
	return k.hash.Sum(dst)
}
