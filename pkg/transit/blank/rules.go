package blank

import (
	"strings"

	"github.com/gregLibert/transit-card/pkg/buffer"
)

// Matcher tests the content of one page.
type Matcher func(data buffer.Buffer) bool

// Equals matches a page holding exactly the given bytes.
func Equals(p ...byte) Matcher {
	return func(data buffer.Buffer) bool { return data.EqualBytes(p...) }
}

// Prefix matches a page whose leading bytes are p; the rest is ignored.
func Prefix(p ...byte) Matcher {
	return func(data buffer.Buffer) bool { return data.HasPrefix(p...) }
}

// Any matches every page. Used for content the reader always masks.
func Any(buffer.Buffer) bool { return true }

// Rule accepts factory default content at one page position.
type Rule struct {
	// Page is an absolute index, or a distance from the end when FromEnd is
	// set (FromEnd with Page 1 is the last page).
	Page    int
	FromEnd bool
	Name    string
	Match   Matcher
}

// Applies reports whether the rule covers page idx of a card with pageCount pages.
func (r Rule) Applies(idx, pageCount int) bool {
	if r.FromEnd {
		return idx == pageCount-r.Page
	}
	return idx == r.Page
}

// Variant is a chip model with its own factory defaults.
type Variant struct {
	Name  string
	Rules []Rule
}

func at(page int, name string, m Matcher) Rule {
	return Rule{Page: page, Name: name, Match: m}
}

func fromEnd(n int, name string, m Matcher) Rule {
	return Rule{Page: n, FromEnd: true, Name: name, Match: m}
}

// ntagConfig is the configuration area at the end of every NTAG21x.
var ntagConfig = []Rule{
	// Dynamic lock bytes; the fourth byte is RFUI.
	fromEnd(5, "LOCK", Prefix(0, 0, 0)),
	// MIRROR, RFUI, MIRROR_PAGE, AUTH0: STRG_MOD_EN=1, AUTH0=0xFF.
	fromEnd(4, "CFG0", Equals(0x04, 0x00, 0x00, 0xFF)),
	// ACCESS; the other bytes are RFUI.
	fromEnd(3, "CFG1", Prefix(0)),
	// PWD and PACK always read back masked.
	fromEnd(2, "PWD", Any),
	// PACK is not required to read back as zeros.
	fromEnd(1, "PACK", Any),
}

func ntag(name string, start ...Rule) Variant {
	return Variant{Name: name, Rules: append(start, ntagConfig...)}
}

// ntagFamilyPrefix selects the NTAG21x branch from the reader's model string.
const ntagFamilyPrefix = "NTAG21"

// ul11PageCount is the page count of a MIFARE Ultralight EV1 MF0UL11.
const ul11PageCount = 0x14

var (
	ntag213 = ntag("NTAG213",
		at(3, "CC", Equals(0xE1, 0x10, 0x12, 0x00)),
		at(4, "NDEF", Equals(0x01, 0x03, 0xA0, 0x0C)),
		at(5, "NDEF", Equals(0x34, 0x03, 0x00, 0xFE)),
	)
	ntag215 = ntag("NTAG215",
		at(3, "CC", Equals(0xE1, 0x10, 0x3E, 0x00)),
		at(4, "NDEF", Equals(0x03, 0x00, 0xFE, 0x00)),
	)
	ntag216 = ntag("NTAG216",
		at(3, "CC", Equals(0xE1, 0x10, 0x6D, 0x00)),
		at(4, "NDEF", Equals(0x03, 0x00, 0xFE, 0x00)),
	)
	ntagGeneric = ntag("NTAG21x")

	ultralightEV1 = Variant{Name: "MF0UL11", Rules: []Rule{
		at(0x10, "CFG0", Equals(0x00, 0x00, 0x00, 0xFF)),
		at(0x11, "CFG1", Equals(0x00, 0x05, 0x00, 0x00)),
	}}

	plain = Variant{Name: "Ultralight"}
)

// Resolve picks the factory default table for a card. It is evaluated once
// per classification.
func Resolve(model string, pageCount int) Variant {
	if strings.HasPrefix(model, ntagFamilyPrefix) {
		switch model {
		case "NTAG213":
			return ntag213
		case "NTAG215":
			return ntag215
		case "NTAG216":
			return ntag216
		default:
			return ntagGeneric
		}
	}
	if pageCount == ul11PageCount {
		return ultralightEV1
	}
	return plain
}

// Accepts reports whether data is a factory default for page idx.
func (v Variant) Accepts(idx, pageCount int, data buffer.Buffer) bool {
	for _, r := range v.Rules {
		if r.Applies(idx, pageCount) && r.Match(data) {
			return true
		}
	}
	return data.EqualBytes(0, 0, 0, 0)
}
