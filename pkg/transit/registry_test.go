package transit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/transit-card/pkg/card"
)

type stubData struct{ name string }

func (d stubData) CardName() string     { return d.name }
func (d stubData) SerialNumber() string { return "" }

type stubFactory struct {
	name     string
	accept   bool
	checkErr error
	dataErr  error
	idErr    error
	probed   *[]string
}

func (f stubFactory) Name() string { return f.name }

func (f stubFactory) Check(*card.Card) (bool, error) {
	if f.probed != nil {
		*f.probed = append(*f.probed, f.name)
	}
	return f.accept, f.checkErr
}

func (f stubFactory) ParseIdentity(*card.Card) (Identity, error) {
	return Identity{Name: f.name, SerialNumber: "S-" + f.name}, f.idErr
}

func (f stubFactory) ParseData(*card.Card) (Data, error) {
	if f.dataErr != nil {
		return nil, f.dataErr
	}
	return stubData{name: f.name}, nil
}

func emptyCard(t *testing.T) *card.Card {
	t.Helper()
	c, err := card.New("", nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	var probed []string
	r := NewRegistry(
		stubFactory{name: "none", probed: &probed},
		stubFactory{name: "first", accept: true, probed: &probed},
		stubFactory{name: "second", accept: true, probed: &probed},
	)

	res, err := r.Parse(emptyCard(t))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := &Result{
		Factory:  "first",
		Identity: Identity{Name: "first", SerialNumber: "S-first"},
		Data:     stubData{name: "first"},
	}
	if diff := cmp.Diff(want, res, cmp.AllowUnexported(stubData{})); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"none", "first"}, probed); diff != "" {
		t.Errorf("probe order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_OrderIsPreserved(t *testing.T) {
	a := stubFactory{name: "a", accept: true}
	b := stubFactory{name: "b", accept: true}

	for _, tt := range []struct {
		order []Factory
		want  string
	}{
		{[]Factory{a, b}, "a"},
		{[]Factory{b, a}, "b"},
	} {
		f, err := NewRegistry(tt.order...).Match(emptyCard(t))
		if err != nil {
			t.Fatal(err)
		}
		if f.Name() != tt.want {
			t.Errorf("Match() = %s, want %s", f.Name(), tt.want)
		}
	}
}

func TestRegistry_NoMatch(t *testing.T) {
	r := NewRegistry(stubFactory{name: "a"}, stubFactory{name: "b"})

	if _, err := r.Identify(emptyCard(t)); !errors.Is(err, ErrClassification) {
		t.Errorf("Identify() error = %v, want ErrClassification", err)
	}
	if _, err := NewRegistry().Parse(emptyCard(t)); !errors.Is(err, ErrClassification) {
		t.Errorf("empty registry error = %v, want ErrClassification", err)
	}
}

func TestRegistry_CheckErrorPropagates(t *testing.T) {
	boom := errors.New("page too short")
	var probed []string
	r := NewRegistry(
		stubFactory{name: "broken", checkErr: boom, probed: &probed},
		stubFactory{name: "later", accept: true, probed: &probed},
	)

	_, err := r.Match(emptyCard(t))
	var ce *CheckError
	if !errors.As(err, &ce) || ce.Factory != "broken" || !errors.Is(err, boom) {
		t.Fatalf("Match() error = %v, want CheckError from broken", err)
	}
	if errors.Is(err, ErrClassification) {
		t.Error("check failure must not read as classification failure")
	}
	if len(probed) != 1 {
		t.Errorf("probing continued after a check error: %v", probed)
	}
}

func TestRegistry_DecodeErrors(t *testing.T) {
	crcErr := errors.New("crc mismatch")

	tests := []struct {
		name    string
		factory stubFactory
		wantOp  string
	}{
		{"Data", stubFactory{name: "f", accept: true, dataErr: crcErr}, "data"},
		{"Identity", stubFactory{name: "f", accept: true, idErr: crcErr}, "identity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.factory).Parse(emptyCard(t))

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Parse() error = %v, want DecodeError", err)
			}
			if de.Factory != "f" || de.Op != tt.wantOp {
				t.Errorf("DecodeError = %+v", de)
			}
			if !errors.Is(err, ErrDecode) || !errors.Is(err, crcErr) {
				t.Errorf("error chain incomplete: %v", err)
			}
			if errors.Is(err, ErrClassification) {
				t.Error("decode failure must not read as classification failure")
			}
		})
	}
}

func TestIdentity_String(t *testing.T) {
	if got := (Identity{Name: "Blank"}).String(); got != "Blank" {
		t.Errorf("String() = %q", got)
	}
	if got := (Identity{Name: "Opal", SerialNumber: "3085"}).String(); got != "Opal (3085)" {
		t.Errorf("String() = %q", got)
	}
}
