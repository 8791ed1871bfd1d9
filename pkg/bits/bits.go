// Package bits holds small bit helpers shared by the APDU codec and the card
// buffer. Positions inside a byte are numbered 1 (LSB) to 8 (MSB), matching
// the ISO 7816 tables.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value from a range of bits (e.g., bits 4 to 3).
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Set returns b with bit n set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Mask returns a value with the low n bits set. n is clamped to 32.
func Mask(n uint) uint32 {
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return (1 << n) - 1
}

// TwoComplement reinterprets an unsigned field whose most significant bit is
// highestBit (0-indexed) as a signed value.
//
// When the sign bit is set the result is v - (2 << highestBit), which is the
// two's complement value of a highestBit+1 bit wide field.
func TwoComplement(v uint32, highestBit uint) int32 {
	if highestBit >= 31 {
		return int32(v)
	}
	if (v>>highestBit)&1 == 1 {
		return int32(int64(v) - int64(2)<<highestBit)
	}
	return int32(v)
}
