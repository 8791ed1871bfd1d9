package iso7816

import (
	"fmt"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// Instruction byte (INS). Values with a high nibble of 6 or 9 collide with
// SW1 procedure bytes and are rejected. In the interindustry range bit 1
// flags a BER-TLV data field (READ BINARY 0xB0 vs 0xB1).
//
// Under CLA 0xFF the codes are the PC/SC Part 3 reader commands; INS 0x00
// with P1=P2=0 is the vendor "direct transmit" that forwards the data field
// to the card untouched.

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instructions used with storage cards.
const (
	INS_DIRECT_TRANSMIT      InsCode = 0x00
	INS_LOAD_KEYS            InsCode = 0x82
	INS_GENERAL_AUTHENTICATE InsCode = 0x86
	INS_READ_BINARY          InsCode = 0xB0
	INS_READ_BINARY_BER      InsCode = 0xB1
	INS_GET_RESPONSE         InsCode = 0xC0
	INS_GET_DATA             InsCode = 0xCA
)

var insNames = map[InsCode]string{
	INS_DIRECT_TRANSMIT:      "DIRECT TRANSMIT",
	INS_LOAD_KEYS:            "LOAD KEYS",
	INS_GENERAL_AUTHENTICATE: "GENERAL AUTHENTICATE",
	INS_READ_BINARY:          "READ BINARY",
	INS_READ_BINARY_BER:      "READ BINARY (BER-TLV)",
	INS_GET_RESPONSE:         "GET RESPONSE",
	INS_GET_DATA:             "GET DATA",
}

// String returns the command name, or InsCode(0xXX) when unknown.
func (i InsCode) String() string {
	if n, ok := insNames[i]; ok {
		return n
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Instruction represents a parsed INS byte.
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction validates ins. 6X and 9X are reserved by ISO 7816-3.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch byte(ins) & 0xF0 {
	case 0x60, 0x90:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1),
	}, nil
}

// MustInstruction is NewInstruction for the constants above.
func MustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
