// Package buffer provides an immutable byte sequence with the field decoders
// needed to pick apart raw card memory.
//
// Card dumps are untrusted: every accessor validates offsets and widths and
// returns an error wrapping ErrOutOfRange instead of panicking.
//
// # Bit numbering
//
// Bits and BitsSigned treat the buffer as one big-endian bitstream: bit 0 is
// the most significant bit of byte 0. BitsLE keeps bytes in forward order but
// numbers bits from the least significant bit of each byte, which is how
// several fare card formats pack their fields.
package buffer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/crc"
)

var (
	// ErrOutOfRange is returned when an offset or length exceeds the buffer.
	ErrOutOfRange = errors.New("out of range")
	// ErrFieldWidth is returned when a decoder is asked for a field wider than its result type.
	ErrFieldWidth = errors.New("invalid field width")
	// ErrMalformedInput is returned when a hex string cannot be decoded.
	ErrMalformedInput = errors.New("malformed input")
)

// Buffer is an immutable sequence of bytes. The zero value is an empty buffer.
type Buffer struct {
	data []byte
}

// New returns a Buffer holding a copy of b.
func New(b []byte) Buffer {
	return Buffer{data: bytes.Clone(b)}
}

// Of returns a Buffer holding the given bytes. Handy for literal patterns.
func Of(b ...byte) Buffer {
	return New(b)
}

// Zero returns a Buffer of n zero bytes.
func Zero(n int) Buffer {
	if n < 0 {
		n = 0
	}
	return Buffer{data: make([]byte, n)}
}

// FromHex decodes a hex string (either case, no separators).
func FromHex(s string) (Buffer, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: hex %q: %v", ErrMalformedInput, s, err)
	}
	return Buffer{data: data}, nil
}

// Len returns the number of bytes.
func (b Buffer) Len() int {
	return len(b.data)
}

// Bytes returns a copy of the content.
func (b Buffer) Bytes() []byte {
	return bytes.Clone(b.data)
}

// Get returns the byte at index i.
func (b Buffer) Get(i int) (byte, error) {
	if i < 0 || i >= len(b.data) {
		return 0, fmt.Errorf("byte %d of %d: %w", i, len(b.data), ErrOutOfRange)
	}
	return b.data[i], nil
}

// SliceOffLen returns the length bytes starting at offset.
func (b Buffer) SliceOffLen(offset, length int) (Buffer, error) {
	if err := b.checkRange(offset, length); err != nil {
		return Buffer{}, err
	}
	// Full slice expression so an append on the result can never reach the source.
	return Buffer{data: b.data[offset : offset+length : offset+length]}, nil
}

// Concat returns a new buffer holding b followed by other.
func (b Buffer) Concat(other Buffer) Buffer {
	out := make([]byte, 0, len(b.data)+len(other.data))
	out = append(out, b.data...)
	out = append(out, other.data...)
	return Buffer{data: out}
}

// Reverse returns a copy with the byte order reversed.
func (b Buffer) Reverse() Buffer {
	out := make([]byte, len(b.data))
	for i, v := range b.data {
		out[len(out)-1-i] = v
	}
	return Buffer{data: out}
}

// ToInt decodes length bytes (at most 4) at offset as a big-endian integer.
func (b Buffer) ToInt(offset, length int) (uint32, error) {
	if length > 4 {
		return 0, fmt.Errorf("int of %d bytes: %w", length, ErrFieldWidth)
	}
	v, err := b.ToLong(offset, length)
	return uint32(v), err
}

// ToLong decodes length bytes (at most 8) at offset as a big-endian integer.
func (b Buffer) ToLong(offset, length int) (uint64, error) {
	if length > 8 {
		return 0, fmt.Errorf("long of %d bytes: %w", length, ErrFieldWidth)
	}
	if err := b.checkRange(offset, length); err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b.data[offset : offset+length] {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// ToBigInt decodes length bytes at offset as an unsigned big-endian integer of any size.
func (b Buffer) ToBigInt(offset, length int) (*big.Int, error) {
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b.data[offset : offset+length]), nil
}

// ToIntReversed decodes length bytes at offset stored least significant byte first.
func (b Buffer) ToIntReversed(offset, length int) (uint32, error) {
	if length > 4 {
		return 0, fmt.Errorf("int of %d bytes: %w", length, ErrFieldWidth)
	}
	v, err := b.ToLongReversed(offset, length)
	return uint32(v), err
}

// ToLongReversed decodes length bytes at offset stored least significant byte first.
func (b Buffer) ToLongReversed(offset, length int) (uint64, error) {
	s, err := b.SliceOffLen(offset, length)
	if err != nil {
		return 0, err
	}
	return s.Reverse().ToLong(0, length)
}

// Bits extracts length bits (1 to 32) starting at startBit of the big-endian
// bitstream.
func (b Buffer) Bits(startBit, length int) (uint32, error) {
	first, last, err := b.bitSpan(startBit, length)
	if err != nil {
		return 0, err
	}

	var acc uint64
	for _, c := range b.data[first : last+1] {
		acc = acc<<8 | uint64(c)
	}
	spanBits := (last - first + 1) * 8
	acc >>= uint(spanBits - startBit%8 - length)
	return uint32(acc) & bits.Mask(uint(length)), nil
}

// BitsLE extracts length bits (1 to 32) starting at startBit, numbering bits
// from the least significant bit of each byte.
func (b Buffer) BitsLE(startBit, length int) (uint32, error) {
	first, last, err := b.bitSpan(startBit, length)
	if err != nil {
		return 0, err
	}

	var acc uint64
	for i, c := range b.data[first : last+1] {
		acc |= uint64(c) << (8 * uint(i))
	}
	acc >>= uint(startBit % 8)
	return uint32(acc) & bits.Mask(uint(length)), nil
}

// BitsSigned extracts a two's complement field of length bits from the
// big-endian bitstream.
func (b Buffer) BitsSigned(startBit, length int) (int32, error) {
	v, err := b.Bits(startBit, length)
	if err != nil {
		return 0, err
	}
	return bits.TwoComplement(v, uint(length-1)), nil
}

// Equal reports whether both buffers hold the same bytes.
func (b Buffer) Equal(other Buffer) bool {
	return bytes.Equal(b.data, other.data)
}

// EqualBytes reports whether the buffer is exactly the given byte pattern.
func (b Buffer) EqualBytes(p ...byte) bool {
	return bytes.Equal(b.data, p)
}

// HasPrefix reports whether the buffer starts with the given bytes.
func (b Buffer) HasPrefix(p ...byte) bool {
	return bytes.HasPrefix(b.data, p)
}

// IsAllZero reports whether every byte is zero. An empty buffer is all zero.
func (b Buffer) IsAllZero() bool {
	for _, c := range b.data {
		if c != 0 {
			return false
		}
	}
	return true
}

// IsASCII reports whether every byte is a 7-bit printable character, CR or LF.
func (b Buffer) IsASCII() bool {
	for _, c := range b.data {
		if c >= 0x80 || (c < 0x20 && c != '\r' && c != '\n') {
			return false
		}
	}
	return true
}

// Hex returns the content as lowercase hex without separators.
func (b Buffer) Hex() string {
	return hex.EncodeToString(b.data)
}

// String implements fmt.Stringer.
func (b Buffer) String() string {
	return b.Hex()
}

// CRC16IBM computes the CRC-16/IBM of the content from the given seed.
func (b Buffer) CRC16IBM(seed uint16) uint16 {
	return Fold(b, seed, crc.UpdateByte)
}

// MarshalText encodes the buffer as lowercase hex.
func (b Buffer) MarshalText() ([]byte, error) {
	return []byte(b.Hex()), nil
}

// UnmarshalText decodes a hex string into the buffer.
func (b *Buffer) UnmarshalText(text []byte) error {
	decoded, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Fold reduces the buffer from left to right.
func Fold[T any](b Buffer, init T, fn func(acc T, c byte) T) T {
	acc := init
	for _, c := range b.data {
		acc = fn(acc, c)
	}
	return acc
}

func (b Buffer) checkRange(offset, length int) error {
	if offset < 0 || length < 0 || offset > len(b.data)-length {
		return fmt.Errorf("offset %d length %d on %d bytes: %w", offset, length, len(b.data), ErrOutOfRange)
	}
	return nil
}

func (b Buffer) bitSpan(startBit, length int) (first, last int, err error) {
	if length < 1 || length > 32 {
		return 0, 0, fmt.Errorf("bit field of %d bits: %w", length, ErrFieldWidth)
	}
	if startBit < 0 || startBit > len(b.data)*8-length {
		return 0, 0, fmt.Errorf("bits %d+%d on %d bytes: %w", startBit, length, len(b.data), ErrOutOfRange)
	}
	return startBit / 8, (startBit + length - 1) / 8, nil
}
