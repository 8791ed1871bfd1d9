package blank

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/transit-card/pkg/buffer"
	"github.com/gregLibert/transit-card/pkg/card"
	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// systemPages are the UID, BCC and lock pages of a typical dump; they are
// never looked at.
var systemPages = [][]byte{
	tlv.Hex("04 A1 B2 9F"),
	tlv.Hex("D4 E5 F6 07"),
	tlv.Hex("11 48 00 00"),
}

// dump builds a card with n pages: system pages, then zeros, then the
// overrides.
func dump(t *testing.T, model string, n int, overrides map[int][]byte, locked ...int) *card.Card {
	t.Helper()
	isLocked := map[int]bool{}
	for _, l := range locked {
		isLocked[l] = true
	}

	pages := make([]card.Page, n)
	for i := range pages {
		data := make([]byte, card.PageSize)
		if i < len(systemPages) {
			data = systemPages[i]
		}
		if o, ok := overrides[i]; ok {
			data = o
		}
		if isLocked[i] {
			pages[i] = card.NewUnauthorizedPage(i, card.PageSize)
			continue
		}
		pages[i] = card.NewPage(i, buffer.New(data))
	}

	c, err := card.New(model, pages)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func ntag213Defaults() map[int][]byte {
	return map[int][]byte{
		3:    tlv.Hex("E1 10 12 00"),
		4:    tlv.Hex("01 03 A0 0C"),
		5:    tlv.Hex("34 03 00 FE"),
		0x28: tlv.Hex("00 00 00 BD"),
		0x29: tlv.Hex("04 00 00 FF"),
		0x2A: tlv.Hex("00 05 00 00"),
		0x2B: tlv.Hex("FF FF FF FF"),
		0x2C: tlv.Hex("12 34 00 00"),
	}
}

func check(t *testing.T, c *card.Card) bool {
	t.Helper()
	ok, err := Factory{}.Check(c)
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	return ok
}

func TestCheck_AllZeroNoModel(t *testing.T) {
	c := dump(t, "", 16, nil)
	if !check(t, c) {
		t.Fatal("an all zero Ultralight must be blank")
	}
}

func TestCheck_SystemPagesOnly(t *testing.T) {
	c := dump(t, "", 3, nil)
	if !check(t, c) {
		t.Fatal("a card with no user pages must be blank")
	}
}

func TestCheck_SystemPagesIgnored(t *testing.T) {
	c := dump(t, "", 16, map[int][]byte{
		0: tlv.Hex("FF FF FF FF"),
		1: tlv.Hex("FF FF FF FF"),
		2: tlv.Hex("FF FF FF FF"),
	}, 0, 1, 2)
	if !check(t, c) {
		t.Fatal("pages 0-2 must never affect the result")
	}
}

func TestCheck_SingleByteFlip(t *testing.T) {
	const n = 16
	for page := 3; page < n; page++ {
		for off := 0; off < card.PageSize; off++ {
			data := make([]byte, card.PageSize)
			data[off] = 0x01
			c := dump(t, "", n, map[int][]byte{page: data})
			if check(t, c) {
				t.Errorf("byte %d of page %d set, card still blank", off, page)
			}
		}
	}
}

func TestCheck_UnauthorizedPage(t *testing.T) {
	for _, page := range []int{3, 8, 15} {
		c := dump(t, "", 16, nil, page)
		if check(t, c) {
			t.Errorf("locked page %d accepted", page)
		}
	}

	// Locked PWD page on an otherwise default NTAG is still not provably blank.
	c := dump(t, "NTAG213", 45, ntag213Defaults(), 0x2B)
	if check(t, c) {
		t.Error("locked NTAG page accepted")
	}
}

func TestCheck_PageWidth(t *testing.T) {
	c := dump(t, "", 8, map[int][]byte{5: {0, 0}})
	ok, err := Factory{}.Check(c)
	if !errors.Is(err, ErrPageWidth) || ok {
		t.Fatalf("Check() = %v, %v; want ErrPageWidth", ok, err)
	}

	_, err = transit.NewRegistry(Factory{}).Match(c)
	var ce *transit.CheckError
	if !errors.As(err, &ce) {
		t.Fatalf("registry error = %v, want CheckError", err)
	}
}

func TestCheck_NTAG(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		pages     int
		overrides map[int][]byte
		want      bool
	}{
		{
			name:      "NTAG213 factory state",
			model:     "NTAG213",
			pages:     45,
			overrides: ntag213Defaults(),
			want:      true,
		},
		{
			name:  "NTAG215 factory state",
			model: "NTAG215",
			pages: 135,
			overrides: map[int][]byte{
				3: tlv.Hex("E1 10 3E 00"),
				4: tlv.Hex("03 00 FE 00"),
				// Page 5 is all zero.
				130: tlv.Hex("00 00 00 BD"),
				131: tlv.Hex("04 00 00 FF"),
				132: tlv.Hex("00 05 00 00"),
			},
			want: true,
		},
		{
			name:  "NTAG216 factory state",
			model: "NTAG216",
			pages: 231,
			overrides: map[int][]byte{
				3:   tlv.Hex("E1 10 6D 00"),
				4:   tlv.Hex("03 00 FE 00"),
				226: tlv.Hex("00 00 00 BD"),
				227: tlv.Hex("04 00 00 FF"),
				228: tlv.Hex("00 05 00 00"),
			},
			want: true,
		},
		{
			name:      "NTAG213 defaults do not apply to NTAG215",
			model:     "NTAG215",
			pages:     135,
			overrides: map[int][]byte{3: tlv.Hex("E1 10 12 00")},
			want:      false,
		},
		{
			name:      "NTAG216 capability container on NTAG215",
			model:     "NTAG215",
			pages:     135,
			overrides: map[int][]byte{3: tlv.Hex("E1 10 6D 00")},
			want:      false,
		},
		{
			name:      "User data after NDEF terminator",
			model:     "NTAG213",
			pages:     45,
			overrides: merge(ntag213Defaults(), map[int][]byte{6: tlv.Hex("D1 01 0A 55")}),
			want:      false,
		},
		{
			name:      "Dynamic lock bits set",
			model:     "NTAG213",
			pages:     45,
			overrides: merge(ntag213Defaults(), map[int][]byte{0x28: tlv.Hex("01 00 00 BD")}),
			want:      false,
		},
		{
			name:      "AUTH0 lowered",
			model:     "NTAG213",
			pages:     45,
			overrides: merge(ntag213Defaults(), map[int][]byte{0x29: tlv.Hex("04 00 00 10")}),
			want:      false,
		},
		{
			name:      "ACCESS changed",
			model:     "NTAG213",
			pages:     45,
			overrides: merge(ntag213Defaults(), map[int][]byte{0x2A: tlv.Hex("80 05 00 00")}),
			want:      false,
		},
		{
			name:      "PACK read back unmasked",
			model:     "NTAG213",
			pages:     45,
			overrides: merge(ntag213Defaults(), map[int][]byte{0x2C: tlv.Hex("80 80 00 00")}),
			want:      true,
		},
		{
			name:      "Other NTAG21x gets only the config rules",
			model:     "NTAG210",
			pages:     20,
			overrides: map[int][]byte{15: tlv.Hex("00 00 00 BD"), 16: tlv.Hex("04 00 00 FF"), 18: tlv.Hex("AA BB CC DD")},
			want:      true,
		},
		{
			name:      "Other NTAG21x with capability container",
			model:     "NTAG210",
			pages:     20,
			overrides: map[int][]byte{3: tlv.Hex("E1 10 06 00")},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dump(t, tt.model, tt.pages, tt.overrides)
			if got := check(t, c); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck_UltralightEV1Config(t *testing.T) {
	cfg := map[int][]byte{
		0x10: tlv.Hex("00 00 00 FF"),
		0x11: tlv.Hex("00 05 00 00"),
	}

	if !check(t, dump(t, "", 0x14, cfg)) {
		t.Error("MF0UL11 factory configuration rejected")
	}

	// Same bytes on a different memory size are user data.
	shifted := map[int][]byte{0x10: cfg[0x10]}
	if check(t, dump(t, "", 0x30, shifted)) {
		t.Error("config pattern accepted outside a 20 page card")
	}

	// The NTAG branch takes precedence over the page count.
	if check(t, dump(t, "NTAG213", 0x14, cfg)) {
		t.Error("MF0UL11 rules applied to an NTAG model")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		model string
		pages int
		want  string
	}{
		{"NTAG213", 45, "NTAG213"},
		{"NTAG215", 135, "NTAG215"},
		{"NTAG216", 231, "NTAG216"},
		{"NTAG212", 41, "NTAG21x"},
		{"", 0x14, "MF0UL11"},
		{"MF0UL21", 0x14, "MF0UL11"},
		{"", 16, "Ultralight"},
		{"ntag213", 45, "Ultralight"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.model, tt.pages).Name; got != tt.want {
			t.Errorf("Resolve(%q, %d) = %s, want %s", tt.model, tt.pages, got, tt.want)
		}
	}
}

func TestRuleApplies(t *testing.T) {
	r := fromEnd(5, "LOCK", Any)
	if !r.Applies(40, 45) || r.Applies(41, 45) {
		t.Error("FromEnd rule resolved to the wrong page")
	}
	a := at(3, "CC", Any)
	if !a.Applies(3, 45) || a.Applies(42, 45) {
		t.Error("absolute rule resolved to the wrong page")
	}
}

func TestParse(t *testing.T) {
	c := dump(t, "", 16, nil)
	r := transit.NewRegistry(Factory{})

	res, err := r.Parse(c)
	if err != nil {
		t.Fatal(err)
	}

	want := &transit.Result{
		Factory:  "blank-ultralight",
		Identity: transit.Identity{Name: CardName},
		Data:     TransitData{},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if res.Identity.HasSerial() || res.Data.SerialNumber() != "" {
		t.Error("blank cards have no serial number")
	}
}

func merge(base, extra map[int][]byte) map[int][]byte {
	for k, v := range extra {
		base[k] = v
	}
	return base
}
