package iso7816

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// The Client hides the T=0 procedure bytes from callers:
//   - 61XX: XX bytes are waiting, a GET RESPONSE is sent with Le = XX.
//   - 6CXX: Le was wrong, the command is sent again with Le = XX.
//
// Send returns the full Trace so callers can inspect every exchange.

var logger = logrus.StandardLogger().WithField("pkg", "iso7816")

// maxFollowUps bounds the 61XX/6CXX chain of a single Send.
const maxFollowUps = 8

// ErrTooManyFollowUps is returned when a card keeps answering 61XX or 6CXX.
var ErrTooManyFollowUps = errors.New("too many GET RESPONSE/Le retries")

// Transmitter abstracts the physical card connection. *scard.Card satisfies it.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles protocol logic (61xx, 6Cxx).
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace
	for range maxFollowUps {
		tx, err := c.exchange(cmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, tx)

		sw := tx.Response.Status
		switch sw.SW1() {
		case 0x61:
			// GET RESPONSE stays on the logical channel of the original command.
			cls := cmd.Class
			cls.IsChained = false
			cmd = NewCommandAPDU(cls, MustInstruction(INS_GET_RESPONSE), 0x00, 0x00, nil, int(sw.SW2()))
		case 0x6C:
			retry := *cmd
			retry.Ne = int(sw.SW2())
			if retry.Ne == 0 {
				retry.Ne = MaxShortLe
			}
			cmd = &retry
		default:
			return trace, nil
		}
	}
	return trace, ErrTooManyFollowUps
}

func (c *Client) exchange(cmd *CommandAPDU) (Transaction, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return Transaction{}, fmt.Errorf("encoding error: %w", err)
	}

	logger.Tracef("> %s", formatHex(raw))
	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		return Transaction{}, fmt.Errorf("transmission error: %w", err)
	}
	logger.Tracef("< %s", formatHex(rawResp))

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{Command: cmd, Response: resp}, nil
}
