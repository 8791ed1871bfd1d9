// Package pcsc wraps the PC/SC Part 3 reader commands used to access
// contactless storage cards: GET DATA for the UID, READ BINARY for memory
// pages and the vendor direct transmit for native card commands.
package pcsc

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/iso7816"
)

var logger = logrus.StandardLogger().WithField("pkg", "pcsc")

// GET DATA P1 selectors.
const (
	DataUID byte = 0x00
	DataATS byte = 0x01
)

// ErrStatus is wrapped by every StatusError.
var ErrStatus = errors.New("reader returned an error status")

// StatusError reports a command the reader answered with a non success SW.
type StatusError struct {
	Op     string
	Status iso7816.StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status.Verbose())
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Sender is implemented by *iso7816.Client.
type Sender interface {
	Send(cmd *iso7816.CommandAPDU) (iso7816.Trace, error)
}

// exchange returns whatever trace was collected, also on error.
func exchange(s Sender, op string, cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	trace, err := s.Send(cmd)
	if err != nil {
		return trace, fmt.Errorf("%s: %w", op, err)
	}
	if !trace.IsSuccess() {
		logger.WithField("op", op).Debugf("status %04X", uint16(trace.Status()))
		return trace, &StatusError{Op: op, Status: trace.Status()}
	}
	return trace, nil
}

func send(s Sender, op string, cmd *iso7816.CommandAPDU) ([]byte, error) {
	trace, err := exchange(s, op, cmd)
	if err != nil {
		return nil, err
	}
	return trace.Data(), nil
}

// GetData issues GET DATA with the given selector (DataUID or DataATS).
func GetData(s Sender, p1 byte) ([]byte, error) {
	cmd := iso7816.NewCommandAPDU(iso7816.ReaderClass(), iso7816.MustInstruction(iso7816.INS_GET_DATA), p1, 0x00, nil, iso7816.MaxShortLe)
	return send(s, "get data", cmd)
}

// GetUID returns the card serial number as reported by the reader.
func GetUID(s Sender) ([]byte, error) {
	return GetData(s, DataUID)
}

// ReadBinary reads n bytes starting at block.
func ReadBinary(s Sender, block byte, n int) ([]byte, error) {
	data, _, err := ReadBinaryTrace(s, block, n)
	return data, err
}

// ReadBinaryTrace is ReadBinary that also returns the exchange with the
// reader. The result is nil only when nothing reached the card.
func ReadBinaryTrace(s Sender, block byte, n int) ([]byte, *iso7816.ReadBinaryResult, error) {
	op := fmt.Sprintf("read block %d", block)
	trace, err := exchange(s, op, iso7816.ReadBinary(iso7816.ReaderClass(), block, n))

	var res *iso7816.ReadBinaryResult
	if len(trace) > 0 {
		res, _ = iso7816.NewReadBinaryResult(trace)
	}
	if err != nil {
		return nil, res, err
	}
	if data := trace.Data(); len(data) >= n {
		return data[:n], res, nil
	}
	return nil, res, fmt.Errorf("%s: got %d bytes, want %d", op, len(trace.Data()), n)
}

// DirectTransmit forwards a native command to the card and returns its
// raw answer.
func DirectTransmit(s Sender, payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > iso7816.MaxShortLc {
		return nil, fmt.Errorf("direct transmit: payload of %d bytes", len(payload))
	}
	cmd := iso7816.NewCommandAPDU(iso7816.ReaderClass(), iso7816.MustInstruction(iso7816.INS_DIRECT_TRANSMIT), 0x00, 0x00, payload, 0)
	return send(s, "direct transmit", cmd)
}
