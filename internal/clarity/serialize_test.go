package clarity_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/clarity"
)

func TestSerialize_UInt(t *testing.T) {
	t.Parallel()

	data, err := clarity.Serialize(clarity.UInt128(1))
	require.NoError(t, err)
	require.Len(t, data, 1+16)
	assert.Equal(t, byte(clarity.KindUInt), data[0])
	assert.Equal(t, "00000000000000000000000000000001", hex.EncodeToString(data[1:]))
}

func TestSerialize_NegativeInt_TwosComplement(t *testing.T) {
	t.Parallel()

	data, err := clarity.Serialize(clarity.Int128(-1))
	require.NoError(t, err)
	require.Len(t, data, 1+16)
	// -1 in 128-bit two's complement is all 0xff.
	assert.Equal(t, "ffffffffffffffffffffffffffffffff", hex.EncodeToString(data[1:]))
}

func TestSerialize_Bool(t *testing.T) {
	t.Parallel()

	trueData, err := clarity.Serialize(clarity.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(clarity.KindBoolTrue)}, trueData)

	falseData, err := clarity.Serialize(clarity.Bool(false))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(clarity.KindBoolFalse)}, falseData)
}

func TestSerialize_TupleFieldsSortedByName(t *testing.T) {
	t.Parallel()

	tuple := clarity.Tuple(map[string]clarity.Value{
		"zeta":  clarity.UInt128(1),
		"alpha": clarity.UInt128(2),
	})

	data, err := clarity.Serialize(tuple)
	require.NoError(t, err)

	alphaIdx := indexOfASCII(data, "alpha")
	zetaIdx := indexOfASCII(data, "zeta")
	require.GreaterOrEqual(t, alphaIdx, 0)
	require.GreaterOrEqual(t, zetaIdx, 0)
	assert.Less(t, alphaIdx, zetaIdx)
}

func TestSerialize_OptionalAndResponse(t *testing.T) {
	t.Parallel()

	none, err := clarity.Serialize(clarity.None())
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(clarity.KindOptionalNone)}, none)

	some, err := clarity.Serialize(clarity.Some(clarity.UInt128(5)))
	require.NoError(t, err)
	assert.Equal(t, byte(clarity.KindOptionalSome), some[0])

	ok, err := clarity.Serialize(clarity.Ok(clarity.Bool(true)))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(clarity.KindResponseOk), byte(clarity.KindBoolTrue)}, ok)
}

func TestSerialize_Buffer(t *testing.T) {
	t.Parallel()

	data, err := clarity.Serialize(clarity.BufferValue([]byte{0xde, 0xad}))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(clarity.KindBuffer), 0, 0, 0, 2, 0xde, 0xad}, data)
}

func indexOfASCII(data []byte, s string) int {
	b := []byte(s)
	for i := 0; i+len(b) <= len(data); i++ {
		match := true
		for j := range b {
			if data[i+j] != b[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
