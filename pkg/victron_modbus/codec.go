package victron_modbus

import "fmt"

// DecodeInt combines raw register words into a signed or unsigned integer.
// Words are in big-endian register order: for two-word kinds the first word
// carries the high bits. Signed kinds are reinterpreted as two's complement.
//
// The caller is responsible for passing exactly kind.Words() registers; a
// mismatch is a contract violation and panics.
func DecodeInt(words []uint16, kind RegisterKind) int64 {
	if len(words) != int(kind.Words()) {
		panic(fmt.Sprintf("victron_modbus: DecodeInt expects %d register(s) for %s, got %d",
			kind.Words(), kind, len(words)))
	}
	switch kind {
	case Uint16:
		return int64(words[0])
	case Int16:
		return int64(int16(words[0]))
	case Uint32:
		return int64(uint32(words[0])<<16 | uint32(words[1]))
	case Int32:
		return int64(int32(uint32(words[0])<<16 | uint32(words[1])))
	}
	panic(fmt.Sprintf("victron_modbus: unknown register kind %d", kind))
}

// ScaledValue decodes words and applies a linear scale factor, e.g. 0.01 to
// turn centivolts into volts.
func ScaledValue(words []uint16, kind RegisterKind, scale float64) float64 {
	return float64(DecodeInt(words, kind)) * scale
}
