package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHash(t *testing.T) {
	_, err := NewHash(make([]byte, 31))
	require.Error(t, err)

	data := GetRandomBytes(HashSize)
	h, err := NewHash(data)
	require.NoError(t, err)
	assert.Equal(t, data, h.Bytes())

	// mutating the input must not change the hash
	data[0] ^= 0xff
	assert.NotEqual(t, data, h.Bytes())
}

func TestHashTextEncoding(t *testing.T) {
	h := GetRandomHash()
	raw, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"`+h.String()+`"`, string(raw))

	var decoded Hash
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, h, decoded)

	var prefixed Hash
	require.NoError(t, prefixed.UnmarshalText([]byte("0x"+h.String())))
	assert.Equal(t, h, prefixed)

	assert.Error(t, decoded.UnmarshalText([]byte("abcd")))
}

func TestAddressCompare(t *testing.T) {
	a := AddressFromByte(1)
	b := AddressFromByte(2)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))

	_, err := NewAddress([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestZeroHash(t *testing.T) {
	assert.True(t, ZeroHash.IsZero())
	assert.False(t, GetRandomHash().IsZero())
}
