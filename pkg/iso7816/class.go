package iso7816

import (
	"fmt"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// Class Byte (CLA) according to ISO/IEC 7816-4, plus the PC/SC reader class.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 7: First (0) or Further (1) interindustry encoding.
// Bit 5: Command chaining.
//
// First interindustry (00xx xxxx): bits 4-3 secure messaging, bits 2-1 channel 0-3.
// Further interindustry (01xx xxxx): bit 6 secure messaging, bits 4-1 channel minus 4.
//
// 0xFF is invalid for cards (it is the PPS marker) and PC/SC reuses it for
// commands handled by the reader itself.

// ClassReader is the CLA byte of PC/SC Part 3 pseudo-APDUs.
const ClassReader byte = 0xFF

// SecureMessaging defines the security level applied to the APDU.
type SecureMessaging int

const (
	SMNone         SecureMessaging = 0
	SMProprietary  SecureMessaging = 1
	SMHeaderNoProc SecureMessaging = 2
	SMHeaderAuth   SecureMessaging = 3
)

// Class represents a decoded CLA byte.
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsReader        bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // Logical channel number (0-19)
}

// ReaderClass returns the class of commands addressed to the PC/SC reader.
func ReaderClass() Class {
	return Class{Raw: ClassReader, IsProprietary: true, IsReader: true}
}

// NewClass decodes a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == ClassReader {
		return ReaderClass(), nil
	}

	c := Class{Raw: cla}

	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
		return c, nil
	}

	if bits.IsSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bits.GetRange(cla, 4, 1) + 4
	return c, nil
}

// Encode converts the Class back to its byte representation.
func (c *Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}
	if c.Channel > 19 {
		return 0, fmt.Errorf("channel %d out of range (max 19)", c.Channel)
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}

	if c.Channel <= 3 {
		res |= byte(c.SecureMessaging) << 2
		res |= c.Channel
		return res, nil
	}

	if c.SecureMessaging == SMProprietary || c.SecureMessaging == SMHeaderAuth {
		return 0, fmt.Errorf("SM indicator %d not supported on channel %d", c.SecureMessaging, c.Channel)
	}
	res = bits.Set(res, 7)
	if c.SecureMessaging != SMNone {
		res = bits.Set(res, 6)
	}
	res |= c.Channel - 4
	return res, nil
}

// Verbose returns a human-readable description of the CLA byte.
func (c Class) Verbose() string {
	switch {
	case c.IsReader:
		return "Class: PC/SC reader (0xFF)"
	case c.IsProprietary:
		return fmt.Sprintf("Class: Proprietary (0x%02X)", c.Raw)
	}

	chaining := "Last or only command"
	if c.IsChained {
		chaining = "More commands follow (Chaining)"
	}
	return fmt.Sprintf("Class: Interindustry 0x%02X\nChaining: %s\nSecure Messaging: %d\nLogical Channel: %d",
		c.Raw, chaining, c.SecureMessaging, c.Channel)
}
