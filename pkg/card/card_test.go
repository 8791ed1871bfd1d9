package card

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/transit-card/pkg/buffer"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pages   []Page
		wantErr bool
	}{
		{"Empty", nil, false},
		{"Contiguous", []Page{NewPage(0, buffer.Zero(4)), NewPage(1, buffer.Zero(4))}, false},
		{"Gap", []Page{NewPage(0, buffer.Zero(4)), NewPage(2, buffer.Zero(4))}, true},
		{"Not from zero", []Page{NewPage(1, buffer.Zero(4))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("", tt.pages)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrPageIndex) {
				t.Errorf("New() error = %v, want ErrPageIndex", err)
			}
		})
	}
}

func TestNew_OwnsPages(t *testing.T) {
	pages := []Page{NewPage(0, buffer.Of(1, 2, 3, 4))}
	c, err := New("NTAG213", pages)
	if err != nil {
		t.Fatal(err)
	}
	pages[0] = NewPage(0, buffer.Of(9, 9, 9, 9))

	p, _ := c.Page(0)
	if !p.Data().EqualBytes(1, 2, 3, 4) {
		t.Errorf("card aliases caller slice: %s", p.Data())
	}

	copied := c.Pages()
	copied[0] = NewUnauthorizedPage(0, 4)
	if p, _ := c.Page(0); !p.Authorized() {
		t.Error("Pages() returned internal slice")
	}
}

func TestUnauthorizedPage(t *testing.T) {
	p := NewUnauthorizedPage(7, 4)
	if p.Authorized() {
		t.Error("expected unauthorized")
	}
	if p.Index() != 7 || p.Data().Len() != 4 || !p.Data().IsAllZero() {
		t.Errorf("unexpected page %+v", p)
	}
}

func TestReadPagesAndUID(t *testing.T) {
	c, err := FromHexPages("",
		"04a1b2c3", // UID0-2, BCC0
		"d4e5f607", // UID3-6
		"1148ff00",
		"e1101200",
	)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := c.UID()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("04a1b2d4e5f607", uid.Hex()); diff != "" {
		t.Errorf("UID mismatch (-want +got):\n%s", diff)
	}

	data, err := c.ReadPages(2, 2)
	if err != nil || data.Hex() != "1148ff00e1101200" {
		t.Errorf("ReadPages(2,2) = %s, %v", data, err)
	}

	if _, err := c.ReadPages(3, 2); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("ReadPages past end error = %v", err)
	}
	if _, err := c.Page(4); !errors.Is(err, buffer.ErrOutOfRange) {
		t.Errorf("Page(4) error = %v", err)
	}
}

func TestReadPages_Unauthorized(t *testing.T) {
	c, err := New("", []Page{
		NewPage(0, buffer.Zero(4)),
		NewUnauthorizedPage(1, 4),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadPages(0, 2); !errors.Is(err, ErrUnauthorizedPage) {
		t.Errorf("ReadPages() error = %v, want ErrUnauthorizedPage", err)
	}
	if _, err := c.UID(); !errors.Is(err, ErrUnauthorizedPage) {
		t.Errorf("UID() error = %v, want ErrUnauthorizedPage", err)
	}
}

func TestJSON(t *testing.T) {
	c, err := New("NTAG215", []Page{
		NewPage(0, buffer.Of(0x04, 0x11, 0x22, 0x33)),
		NewUnauthorizedPage(1, 4),
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"model":"NTAG215","pages":[{"index":0,"data":"04112233"},{"index":1,"data":"00000000","unauthorized":true}]}`
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Errorf("Marshal mismatch (-want +got):\n%s", diff)
	}

	var back Card
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Model() != "NTAG215" || back.PageCount() != 2 {
		t.Fatalf("unexpected card %q/%d", back.Model(), back.PageCount())
	}
	if p, _ := back.Page(1); p.Authorized() {
		t.Error("page 1 should stay unauthorized")
	}
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"Bad hex", `{"pages":[{"index":0,"data":"zz"}]}`},
		{"Bad index", `{"pages":[{"index":3,"data":"00000000"}]}`},
		{"Not JSON", `pages`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Card
			if err := json.Unmarshal([]byte(tt.in), &c); err == nil {
				t.Error("expected error")
			}
		})
	}
}
