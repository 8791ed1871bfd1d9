package iso7816

import "fmt"

// READ BINARY (INS 'B0') as mapped by PC/SC Part 3 onto storage cards:
//
//   - P1: address MSB, always 00 for cards with one byte page numbers.
//   - P2: address LSB, the page (Ultralight) or block (Classic) number.
//   - Le: bytes to read. Ultralight readers accept 4 (one page) or 16.

// ReadBinary builds a READ BINARY of ne bytes starting at block.
func ReadBinary(cla Class, block byte, ne int) *CommandAPDU {
	return NewCommandAPDU(cla, MustInstruction(INS_READ_BINARY), 0x00, block, nil, ne)
}

// ReadBinaryResult represents the outcome of a READ BINARY execution.
type ReadBinaryResult struct {
	Trace
}

// NewReadBinaryResult wraps a trace that must start with READ BINARY.
func NewReadBinaryResult(t Trace) (*ReadBinaryResult, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("cannot create result from empty trace")
	}
	if ins := t[0].Command.Instruction.Raw; ins != INS_READ_BINARY {
		return nil, fmt.Errorf("trace must start with READ BINARY command (got %02X)", byte(ins))
	}
	return &ReadBinaryResult{Trace: t}, nil
}

// Block returns the block number addressed by the command.
func (r *ReadBinaryResult) Block() byte {
	return r.Trace[0].Command.P2
}
