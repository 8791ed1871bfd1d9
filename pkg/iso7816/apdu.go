package iso7816

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// A command APDU is a 4 byte header (CLA INS P1 P2) followed by an optional
// body: Lc and the data field when data is sent, Le when a response is
// expected. Readers implementing PC/SC Part 3 only accept short lengths for
// storage card commands, so extended encoding is rejected.
//
// A response APDU is an optional data field followed by SW1 SW2.

const (
	// MaxShortLc is the largest data field encodable on one Lc byte.
	MaxShortLc = 255

	// MaxShortLe is the largest Ne encodable on one Le byte (0x00 means 256).
	MaxShortLe = 256
)

// ErrExtendedLength is returned when a command does not fit short encoding.
var ErrExtendedLength = errors.New("extended length APDU not supported")

// CommandAPDU represents a command sent to the card or reader.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the command (cases 1 to 4, short form).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc, ne := len(c.Data), c.Ne
	if nc > MaxShortLc || ne > MaxShortLe || ne < 0 {
		return nil, fmt.Errorf("Nc=%d Ne=%d: %w", nc, ne, ErrExtendedLength)
	}

	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4+1+nc+1))
	buf.Write([]byte{class, byte(c.Instruction.Raw), c.P1, c.P2})

	if nc > 0 {
		buf.WriteByte(byte(nc))
		buf.Write(c.Data)
	}
	if ne > 0 {
		// 256 wraps to 0x00
		buf.WriteByte(byte(ne))
	}
	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw bytes into data and status word.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	n := len(raw) - 2
	return &ResponseAPDU{
		Data:   bytes.Clone(raw[:n]),
		Status: NewStatusWord(raw[n], raw[n+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}

// formatHex prints bytes the way reader traces usually show them.
func formatHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
