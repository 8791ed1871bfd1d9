// Package transit defines the contract every card decoder implements and the
// ordered registry that picks a decoder for a card dump.
//
// # Dispatch
//
// A Registry holds factories in a fixed priority order. For a given card it
// calls Check on each factory in turn and the first one that accepts the card
// wins; later factories are never probed. Two factories that both accept the
// same real card are a bug in one of them, the registry does not arbitrate.
//
// # Errors
//
//   - ErrClassification: no factory accepted the card.
//   - *CheckError: a factory could not evaluate the card at all (for example a
//     page narrower than its format). It is propagated, never read as "no".
//   - *DecodeError: a factory accepted the card but could not decode it.
package transit

import (
	"errors"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/card"
)

// Identity is the minimal result of a classification.
type Identity struct {
	Name         string
	SerialNumber string
}

// HasSerial reports whether the card type exposes a serial number.
func (i Identity) HasSerial() bool {
	return i.SerialNumber != ""
}

func (i Identity) String() string {
	if i.HasSerial() {
		return fmt.Sprintf("%s (%s)", i.Name, i.SerialNumber)
	}
	return i.Name
}

// Data is the decoded content of a card. Concrete types are per card family.
type Data interface {
	CardName() string
	SerialNumber() string
}

// Factory recognises and decodes one card family.
//
// Check must be free of side effects and safe on any card, including foreign
// or truncated dumps; it returns an error only when the card violates the
// structure the factory depends on. ParseIdentity is only called after Check
// returned true. ParseData may still fail after a successful Check.
type Factory interface {
	Name() string
	Check(c *card.Card) (bool, error)
	ParseIdentity(c *card.Card) (Identity, error)
	ParseData(c *card.Card) (Data, error)
}

// ErrClassification is returned when no registered factory accepts a card.
var ErrClassification = errors.New("card not recognised")

// ErrDecode matches every *DecodeError through errors.Is.
var ErrDecode = errors.New("decode failed")

// CheckError reports a structural failure while probing a factory.
type CheckError struct {
	Factory string
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: check: %v", e.Factory, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// DecodeError reports a failure of a factory that accepted the card.
type DecodeError struct {
	Factory string
	Op      string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Factory, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
