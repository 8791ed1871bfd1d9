package iso7816

import (
	"strings"
	"testing"
)

func TestNewClass(t *testing.T) {
	tests := []struct {
		name  string
		cla   byte
		check func(Class) bool
	}{
		{
			name: "PC/SC reader class",
			cla:  0xFF,
			check: func(c Class) bool {
				return c.IsReader && c.IsProprietary && c.Raw == 0xFF
			},
		},
		{
			name: "First Interindustry - Ch 0, No SM",
			cla:  0b0_0_00_0_00,
			check: func(c Class) bool {
				return !c.IsProprietary && c.Channel == 0 && c.SecureMessaging == SMNone
			},
		},
		{
			name: "First Interindustry - Ch 3, Chaining, SM Auth",
			cla:  0b0_0_11_1_11,
			check: func(c Class) bool {
				return c.IsChained && c.Channel == 3 && c.SecureMessaging == SMHeaderAuth
			},
		},
		{
			name: "Further Interindustry - Ch 19, SM",
			cla:  0b0_1_1_0_1111,
			check: func(c Class) bool {
				return c.Channel == 19 && c.SecureMessaging == SMHeaderNoProc
			},
		},
		{
			name: "Proprietary",
			cla:  0x90,
			check: func(c Class) bool {
				return c.IsProprietary && !c.IsReader
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClass(tt.cla)
			if err != nil {
				t.Fatalf("NewClass() error = %v", err)
			}
			if !tt.check(c) {
				t.Errorf("NewClass(%08b) failed validation: %+v", tt.cla, c)
			}
		})
	}
}

func TestClass_Encode_RoundTrip(t *testing.T) {
	for _, cla := range []byte{
		0b0_0_00_0_00,
		0b0_0_11_1_11,
		0b0_1_0_0_0000,
		0b0_1_1_1_1111,
		0xFF,
		0x80,
	} {
		c, err := NewClass(cla)
		if err != nil {
			t.Fatalf("NewClass(%08b): %v", cla, err)
		}
		encoded, err := c.Encode()
		if err != nil {
			t.Fatalf("Encode(%+v): %v", c, err)
		}
		if encoded != cla {
			t.Errorf("Round-trip mismatch: got %08b, want %08b", encoded, cla)
		}
	}
}

func TestClass_Encode_Invalid(t *testing.T) {
	bad := []Class{
		{Channel: 20},
		{Channel: 5, SecureMessaging: SMHeaderAuth},
	}
	for _, c := range bad {
		if _, err := c.Encode(); err == nil {
			t.Errorf("Encode(%+v) should fail", c)
		}
	}
}

func TestClass_Verbose(t *testing.T) {
	if got := ReaderClass().Verbose(); !strings.Contains(got, "PC/SC reader") {
		t.Errorf("Verbose() = %q", got)
	}
	c, _ := NewClass(0x10)
	if got := c.Verbose(); !strings.Contains(got, "Chaining") {
		t.Errorf("Verbose() = %q", got)
	}
}
