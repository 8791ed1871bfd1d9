// Package ultralight reads MIFARE Ultralight and NTAG21x cards through a
// PC/SC reader into a card.Card.
package ultralight

import (
	"errors"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/pcsc"
)

// Native command codes sent through the reader's direct transmit.
const (
	cmdGetVersion byte = 0x60
)

// NXP vendor and product identifiers found in GET_VERSION.
const (
	VendorNXP         byte = 0x04
	ProductUltralight byte = 0x03
	ProductNTAG       byte = 0x04
)

// ErrVersion is returned for a GET_VERSION answer that cannot be decoded.
var ErrVersion = errors.New("invalid GET_VERSION response")

// Version is the 8 byte answer to GET_VERSION.
type Version struct {
	Vendor      byte
	ProductType byte
	Subtype     byte
	Major       byte
	Minor       byte
	Storage     byte
	Protocol    byte
}

// ParseVersion decodes a GET_VERSION answer. Readers may prepend their own
// framing, so only the last 8 bytes are used.
func ParseVersion(b []byte) (Version, error) {
	if len(b) < 8 {
		return Version{}, fmt.Errorf("%d bytes: %w", len(b), ErrVersion)
	}
	b = b[len(b)-8:]
	if b[0] != 0x00 {
		return Version{}, fmt.Errorf("header %02X: %w", b[0], ErrVersion)
	}
	return Version{
		Vendor:      b[1],
		ProductType: b[2],
		Subtype:     b[3],
		Major:       b[4],
		Minor:       b[5],
		Storage:     b[6],
		Protocol:    b[7],
	}, nil
}

// Model returns the chip model name, or "" when unknown.
func (v Version) Model() string {
	if v.Vendor != VendorNXP {
		return ""
	}
	switch v.ProductType {
	case ProductNTAG:
		switch v.Storage {
		case 0x0B:
			return "NTAG210"
		case 0x0E:
			return "NTAG212"
		case 0x0F:
			return "NTAG213"
		case 0x11:
			return "NTAG215"
		case 0x13:
			return "NTAG216"
		}
	case ProductUltralight:
		switch v.Storage {
		case 0x0B:
			return "MF0UL11"
		case 0x0E:
			return "MF0UL21"
		}
	}
	return ""
}

// GetVersion sends GET_VERSION. Plain Ultralight and Ultralight C do not
// implement it and fail here.
func GetVersion(s pcsc.Sender) (Version, error) {
	resp, err := pcsc.DirectTransmit(s, []byte{cmdGetVersion})
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(resp)
}

// ModelFromCapabilityContainer guesses the model from the NDEF capability
// container in page 3. Byte 2 is the data area size divided by 8.
func ModelFromCapabilityContainer(cc []byte) string {
	if len(cc) < 4 || cc[0] != 0xE1 {
		return ""
	}
	switch cc[2] {
	case 0x12:
		return "NTAG213"
	case 0x3E:
		return "NTAG215"
	case 0x6D:
		return "NTAG216"
	}
	return ""
}

var pageCounts = map[string]int{
	"NTAG210": 20,
	"NTAG212": 41,
	"NTAG213": 45,
	"NTAG215": 135,
	"NTAG216": 231,
	"MF0UL11": 20,
	"MF0UL21": 41,
	// Pages 0x2C to 0x2F hold the 3DES key and never read back.
	"MF0ICU2": 44,
}

// PageCount returns the number of pages of a known model, or 0.
func PageCount(model string) int {
	return pageCounts[model]
}
