package types

import (
	"fmt"
	"strings"

	"github.com/0xPolygon/interop-edge/helper/hex"
)

const (
	HashLength    = 32
	AddressLength = 20
)

var (
	// ZeroAddress is the default address
	ZeroAddress = Address{}
	// ZeroHash is the all-zero hash, meaning "not set" wherever a commitment is expected
	ZeroHash = Hash{}
)

type Hash [HashLength]byte

type Address [AddressLength]byte

func min(i, j int) int {
	if i < j {
		return i
	}

	return j
}

func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[len(b)-min:])

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

// MarshalText implements encoding.TextMarshaler
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", string(input), err)
	}

	if len(buf) > HashLength {
		return fmt.Errorf("invalid hash length %d", len(buf))
	}

	*h = BytesToHash(buf)

	return nil
}

func BytesToAddress(b []byte) Address {
	var a Address

	size := len(b)
	min := min(size, AddressLength)

	copy(a[AddressLength-min:], b[len(b)-min:])

	return a
}

func (a Address) String() string {
	return hex.EncodeToHex(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", string(input), err)
	}

	if len(buf) != AddressLength {
		return fmt.Errorf("incorrect address length %d", len(buf))
	}

	*a = BytesToAddress(buf)

	return nil
}

func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func stringToBytes(str string) []byte {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}

	b, _ := hex.DecodeHex(str)

	return b
}

// HexBytes is a byte slice marshaled as a 0x prefixed hex string
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToHex(h)
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HexBytes) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return err
	}

	*h = buf

	return nil
}
