package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// WriteStructFields appends one "    - prefix.Field: value" line per non
// empty []byte, unsigned or unknown-TLV field of s. Blocks are separated by
// a newline and no trailing newline is written.
//
// The `fmt` field tag selects the rendering of byte slices: "ascii" adds a
// printable transcription, "int" the big endian decimal value.
func WriteStructFields(sb *strings.Builder, prefix string, s any) {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	var lines []string

	for i := range val.NumField() {
		field, sf := val.Field(i), typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		switch {
		case sf.Type == reflect.TypeOf([]bertlv.TLV(nil)):
			for _, p := range field.Interface().([]bertlv.TLV) {
				lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %s", prefix, p.Tag, upperHex(p.Value)))
			}
		case isByteSlice(field):
			if field.Len() == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("    - %s.%s: %s", prefix, label(sf), formatBytes(field.Bytes(), sf.Tag.Get("fmt"))))
		case field.CanUint():
			lines = append(lines, fmt.Sprintf("    - %s.%s: 0x%0*X", prefix, label(sf), 2*int(sf.Type.Size()), field.Uint()))
		}
	}

	if len(lines) == 0 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(lines, "\n"))
}

func label(sf reflect.StructField) string {
	if tag := sf.Tag.Get("tlv"); tag != "" {
		return fmt.Sprintf("%s (%s)", sf.Name, tag)
	}
	return sf.Name
}

func formatBytes(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var n uint64
		for _, b := range data {
			n = n<<8 | uint64(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, n)
	default:
		return upperHex(data)
	}
}

func upperHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// MakeSafeASCII replaces every byte outside 0x20..0x7E with a dot.
func MakeSafeASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b < 0x20 || b > 0x7E {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}
