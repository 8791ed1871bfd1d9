package pcsc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/tlv"
)

// An ATR (ISO 7816-3) is TS, T0, the interface bytes announced by the Y
// nibbles of T0 and each TDi, K historical bytes and, when any protocol other
// than T=0 is offered, the TCK checksum.
//
// For contactless storage cards the reader synthesises the ATR and puts a
// PC/SC Part 3 descriptor in the historical bytes:
//
//	80 4F 0C A0 00 00 03 06 SS NN NN 00 00 00 00
//
// 80 is the category indicator, 4F the AID tag, A000000306 the PC/SC RID,
// SS the card standard and NN NN the card name.

var (
	ErrATR         = errors.New("malformed ATR")
	ErrNotStorage  = errors.New("ATR does not describe a storage card")
	ErrATRChecksum = errors.New("ATR checksum mismatch")
)

// RID registered for PC/SC storage card descriptors.
var storageRID = []byte{0xA0, 0x00, 0x00, 0x03, 0x06}

// ATR is a parsed answer to reset.
type ATR struct {
	Raw        []byte
	Protocols  []byte // T values announced by the TDi bytes
	Historical []byte
	TCK        *byte
}

// ParseATR splits an ATR into its parts and checks TCK when present.
func ParseATR(raw []byte) (*ATR, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%d bytes: %w", len(raw), ErrATR)
	}
	if raw[0] != 0x3B && raw[0] != 0x3F {
		return nil, fmt.Errorf("TS %02X: %w", raw[0], ErrATR)
	}

	atr := &ATR{Raw: raw}
	k := int(bits.GetRange(raw[1], 4, 1))
	y := raw[1] >> 4
	i := 2
	needTCK := false

	for {
		// TA, TB, TC are skipped; TD chains to the next group.
		for _, bit := range []byte{0x10, 0x20, 0x40} {
			if y&bit != 0 {
				i++
			}
		}
		if y&0x80 == 0 {
			break
		}
		if i >= len(raw) {
			return nil, fmt.Errorf("truncated interface bytes: %w", ErrATR)
		}
		td := raw[i]
		i++
		t := td & 0x0F
		atr.Protocols = append(atr.Protocols, t)
		if t != 0 {
			needTCK = true
		}
		y = td >> 4
	}

	if i+k > len(raw) {
		return nil, fmt.Errorf("historical bytes past end: %w", ErrATR)
	}
	atr.Historical = raw[i : i+k]
	i += k

	if needTCK {
		if i >= len(raw) {
			return nil, fmt.Errorf("missing TCK: %w", ErrATR)
		}
		var x byte
		for _, b := range raw[1 : i+1] {
			x ^= b
		}
		if x != 0 {
			return nil, ErrATRChecksum
		}
		tck := raw[i]
		atr.TCK = &tck
		i++
	}
	if i != len(raw) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(raw)-i, ErrATR)
	}
	return atr, nil
}

// Standard is the SS byte of a storage card descriptor.
type Standard byte

const (
	StandardISO14443A3 Standard = 0x03
	StandardISO15693   Standard = 0x0B
	StandardFeliCa     Standard = 0x11
)

func (s Standard) String() string {
	switch s {
	case StandardISO14443A3:
		return "ISO 14443 A part 3"
	case StandardISO15693:
		return "ISO 15693 part 3"
	case StandardFeliCa:
		return "FeliCa"
	default:
		return fmt.Sprintf("Standard(0x%02X)", byte(s))
	}
}

// CardName is the NN NN card name of a storage card descriptor.
type CardName uint16

const (
	CardMifare1K    CardName = 0x0001
	CardMifare4K    CardName = 0x0002
	CardUltralight  CardName = 0x0003
	CardMifareMini  CardName = 0x0026
	CardUltralightC CardName = 0x003A
	CardTopazJewel  CardName = 0xF004
	CardFeliCa212   CardName = 0xF011
	CardFeliCa424   CardName = 0xF012
)

var cardNames = map[CardName]string{
	CardMifare1K:    "MIFARE Classic 1K",
	CardMifare4K:    "MIFARE Classic 4K",
	CardUltralight:  "MIFARE Ultralight",
	CardMifareMini:  "MIFARE Mini",
	CardUltralightC: "MIFARE Ultralight C",
	CardTopazJewel:  "Topaz/Jewel",
	CardFeliCa212:   "FeliCa 212K",
	CardFeliCa424:   "FeliCa 424K",
}

func (n CardName) String() string {
	if s, ok := cardNames[n]; ok {
		return s
	}
	return fmt.Sprintf("CardName(0x%04X)", uint16(n))
}

// IsUltralight reports whether the card belongs to the Ultralight family,
// which includes NTAG21x.
func (n CardName) IsUltralight() bool {
	return n == CardUltralight || n == CardUltralightC
}

// StorageCard is the decoded 4F descriptor.
type StorageCard struct {
	RID      []byte
	Standard Standard
	Name     CardName
}

// UnmarshalTLV implements tlv.Unmarshaler.
func (s *StorageCard) UnmarshalTLV(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("descriptor of %d bytes: %w", len(data), ErrNotStorage)
	}
	s.RID = data[:5]
	s.Standard = Standard(data[5])
	s.Name = CardName(uint16(data[6])<<8 | uint16(data[7]))
	return nil
}

type historical struct {
	Storage *StorageCard `tlv:"4F"`
	Unknown []bertlv.TLV `tlv:",unknown"`
}

// StorageCard decodes the PC/SC storage card descriptor from the
// historical bytes.
func (a *ATR) StorageCard() (*StorageCard, error) {
	h := a.Historical
	if len(h) < 1 || h[0] != 0x80 {
		return nil, ErrNotStorage
	}

	var out historical
	if err := tlv.Unmarshal(h[1:], &out); err != nil {
		return nil, fmt.Errorf("historical bytes: %w", err)
	}
	if out.Storage == nil || !bytes.Equal(out.Storage.RID, storageRID) {
		return nil, ErrNotStorage
	}
	if len(out.Unknown) > 0 {
		logger.Debugf("ignoring %d extra historical TLVs", len(out.Unknown))
	}
	return out.Storage, nil
}

// Describe renders the descriptor fields.
func (s *StorageCard) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Storage card: %s (%s)", s.Name, s.Standard)
	tlv.WriteStructFields(&sb, "ATR", s)
	return sb.String()
}
