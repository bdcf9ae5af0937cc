package keyderiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestC32EncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := [][]byte{
		{0x00, 0x00, 0x01, 0x02},
		{0xff, 0xee, 0xdd, 0xcc, 0xbb},
		{0x00},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a},
	}

	for _, data := range cases {
		encoded := c32Encode(data)
		decoded, err := c32Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}
}

func TestStacksAddress_MainnetHasExpectedPrefix(t *testing.T) {
	t.Parallel()

	hash160 := make([]byte, 20)
	for i := range hash160 {
		hash160[i] = byte(i)
	}

	addr := StacksAddress(22, hash160)
	assert.True(t, len(addr) > 2)
	assert.Equal(t, "S", string(addr[0]))
}

func TestC32Decode_RejectsInvalidCharacter(t *testing.T) {
	t.Parallel()

	_, err := c32Decode("!!!invalid!!!")
	assert.ErrorIs(t, err, ErrInvalidC32Character)
}

func TestDecodeStacksAddress_RoundTrip(t *testing.T) {
	t.Parallel()

	hash160 := make([]byte, 20)
	for i := range hash160 {
		hash160[i] = byte(i + 1)
	}

	addr := StacksAddress(22, hash160)
	version, decodedHash160, contractName, err := DecodeStacksAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, byte(22), version)
	assert.Equal(t, hash160, decodedHash160)
	assert.Empty(t, contractName)
}

func TestDecodeStacksAddress_SplitsContractName(t *testing.T) {
	t.Parallel()

	hash160 := make([]byte, 20)
	addr := StacksAddress(22, hash160) + ".sbtc-token"

	_, _, contractName, err := DecodeStacksAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, "sbtc-token", contractName)
}

func TestDecodeStacksAddress_RejectsBadChecksum(t *testing.T) {
	t.Parallel()

	hash160 := make([]byte, 20)
	addr := StacksAddress(22, hash160)
	tampered := addr[:len(addr)-1] + "9"

	_, _, _, err := DecodeStacksAddress(tampered)
	assert.Error(t, err)
}
