// Package crc implements the reflected CRC-16 used by several transit card
// families to protect records.
package crc

// PolyIBM is the reversed form of the CRC-16/IBM (ARC) polynomial 0x8005.
const PolyIBM uint16 = 0xA001

var ibmTable = Table(PolyIBM)

// Table builds the 256 entry lookup table for a reflected (LSB first) CRC-16
// with the given reversed polynomial.
func Table(poly uint16) *[256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		cur := uint16(i)
		for j := 0; j < 8; j++ {
			if cur&1 != 0 {
				cur = (cur >> 1) ^ poly
			} else {
				cur >>= 1
			}
		}
		table[i] = cur
	}
	return &table
}

// Update folds data into a running reflected CRC using table.
func Update(crc uint16, table *[256]uint16, data []byte) uint16 {
	for _, b := range data {
		crc = (crc >> 8) ^ table[byte(crc)^b]
	}
	return crc
}

// CRC16IBM computes CRC-16/IBM over data starting from seed.
//
// The seed is not fixed: card families start from 0x0000, 0xFFFF or a
// family specific value. Feeding the result of one call as the seed of the
// next is equivalent to a single call over the concatenated input.
func CRC16IBM(data []byte, seed uint16) uint16 {
	return Update(seed, ibmTable, data)
}

// UpdateByte is the single step of CRC16IBM, for use with left folds.
func UpdateByte(crc uint16, b byte) uint16 {
	return (crc >> 8) ^ ibmTable[byte(crc)^b]
}
