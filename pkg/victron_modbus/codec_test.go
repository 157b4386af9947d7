package victron_modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInt16(t *testing.T) {

	assert := assert.New(t)

	assert.EqualValues(0, DecodeInt([]uint16{0x0000}, Int16))
	assert.EqualValues(1, DecodeInt([]uint16{0x0001}, Int16))
	assert.EqualValues(-1, DecodeInt([]uint16{0xFFFF}, Int16))
	assert.EqualValues(-32768, DecodeInt([]uint16{0x8000}, Int16))
	assert.EqualValues(32767, DecodeInt([]uint16{0x7FFF}, Int16))

	assert.EqualValues(0xFFFF, DecodeInt([]uint16{0xFFFF}, Uint16))
	assert.EqualValues(0x8000, DecodeInt([]uint16{0x8000}, Uint16))
}

func TestDecodeInt32(t *testing.T) {

	assert := assert.New(t)

	// big-endian register order: first word is the high word
	assert.EqualValues(0x00010002, DecodeInt([]uint16{0x0001, 0x0002}, Int32))
	assert.EqualValues(-1, DecodeInt([]uint16{0xFFFF, 0xFFFF}, Int32))
	assert.EqualValues(-2147483648, DecodeInt([]uint16{0x8000, 0x0000}, Int32))
	assert.EqualValues(2147483647, DecodeInt([]uint16{0x7FFF, 0xFFFF}, Int32))

	assert.EqualValues(uint32(0xFFFFFFFF), DecodeInt([]uint16{0xFFFF, 0xFFFF}, Uint32))
	assert.EqualValues(uint32(0x80000000), DecodeInt([]uint16{0x8000, 0x0000}, Uint32))
}

// Signed and unsigned 32-bit decodes differ exactly when the top bit of the
// high word is set, and each stays inside its native range.
func TestDecode32SignBoundary(t *testing.T) {

	require := require.New(t)

	samples := [][2]uint16{
		{0x0000, 0x0000}, {0x0000, 0xFFFF}, {0x7FFF, 0xFFFF},
		{0x8000, 0x0000}, {0x8001, 0x1234}, {0xFFFF, 0xFFFF},
		{0x1234, 0x5678}, {0xCAFE, 0xBABE},
	}
	for _, words := range samples {
		signed := DecodeInt(words[:], Int32)
		unsigned := DecodeInt(words[:], Uint32)

		topBitSet := words[0]&0x8000 != 0
		require.Equal(topBitSet, signed != unsigned, "words %04x %04x", words[0], words[1])

		require.GreaterOrEqual(signed, int64(-2147483648))
		require.LessOrEqual(signed, int64(2147483647))
		require.GreaterOrEqual(unsigned, int64(0))
		require.LessOrEqual(unsigned, int64(4294967295))
	}
}

func TestScaledValue(t *testing.T) {

	assert := assert.New(t)

	// 23010 centivolts -> 230.10 V
	assert.InDelta(230.10, ScaledValue([]uint16{23010}, Int16, 0.01), 1e-9)
	// -250 W
	assert.InDelta(-250, ScaledValue([]uint16{0xFFFF, 0xFF06}, Int32, 1), 1e-9)
}

// ScaledValue is linear in the scale factor.
func TestScaledValueLinearity(t *testing.T) {

	assert := assert.New(t)

	words := []uint16{0x8123, 0x4567}
	for _, scale := range []float64{0.01, 0.1, 1, 2.5} {
		assert.InDelta(2*ScaledValue(words, Int32, scale), ScaledValue(words, Int32, 2*scale), 1e-9)
		assert.InDelta(2*ScaledValue(words, Uint32, scale), ScaledValue(words, Uint32, 2*scale), 1e-6)
	}
}

func TestDecodeIntLengthContract(t *testing.T) {

	assert := assert.New(t)

	assert.Panics(func() { DecodeInt([]uint16{1, 2}, Int16) })
	assert.Panics(func() { DecodeInt([]uint16{1}, Int32) })
	assert.Panics(func() { DecodeInt(nil, Uint16) })
}
