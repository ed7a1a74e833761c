package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the size in bytes of block ids, txn hashes and state roots.
const HashSize = 32

// AddressSize is the size in bytes of an account address.
const AddressSize = 32

// Hash is an opaque 32 byte identifier. It is only ever compared, never interpreted.
type Hash [HashSize]byte

// ZeroHash is the hash with all bytes set to zero.
var ZeroHash Hash

// NewHash creates a Hash from bytes, returning error if the length is wrong.
func NewHash(data []byte) (Hash, error) {
	var h Hash
	if len(data) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(data))
	}
	copy(h[:], data)
	return h, nil
}

// HashBytes computes the SHA-256 hash of data.
func HashBytes(data []byte) Hash {
	return sha256.Sum256(data)
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return bytes.Clone(h[:])
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText encodes the hash as lowercase hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex encoded hash.
func (h *Hash) UnmarshalText(text []byte) error {
	return decodeFixed(h[:], text)
}

// Address identifies an account. Like Hash it is opaque.
type Address [AddressSize]byte

// NewAddress creates an Address from bytes, returning error if the length is wrong.
func NewAddress(data []byte) (Address, error) {
	var a Address
	if len(data) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	copy(a[:], data)
	return a, nil
}

// Compare orders addresses lexicographically by their bytes.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText encodes the address as lowercase hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a hex encoded address.
func (a *Address) UnmarshalText(text []byte) error {
	return decodeFixed(a[:], text)
}

func decodeFixed(dst []byte, text []byte) error {
	text = bytes.TrimPrefix(text, []byte("0x"))
	if hex.DecodedLen(len(text)) != len(dst) {
		return fmt.Errorf("expected %d hex encoded bytes, got %d characters", len(dst), len(text))
	}
	_, err := hex.Decode(dst, text)
	return err
}
