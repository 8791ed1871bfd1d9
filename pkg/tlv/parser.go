// Package tlv maps BER-TLV data onto Go structs using `tlv:"TAG"` field tags.
//
// Supported field kinds:
//   - []byte: the raw value (nested TLVs are re-encoded).
//   - string: the value as upper case hex.
//   - unsigned integers: the value read big endian.
//   - structs and struct pointers: decoded recursively.
//   - slices of the above: one element per occurrence of the tag.
//   - any type implementing Unmarshaler.
//
// A field tagged `tlv:",unknown"` (or named Unknown) of type []bertlv.TLV
// collects the packets no other field consumed.
package tlv

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// ErrTarget is returned when the destination is not a pointer to a struct.
var ErrTarget = errors.New("target must be a non-nil pointer to a struct")

// ErrTagNotFound is returned by GetValue when the tag is absent.
var ErrTagNotFound = errors.New("tag not found")

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

var unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()

// Unmarshal decodes raw BER-TLV data into target.
func Unmarshal(data []byte, target any) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps already decoded packets into target.
func UnmarshalFromPackets(packets []bertlv.TLV, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrTarget
	}
	v = v.Elem()
	t := v.Type()

	consumed := make([]bool, len(packets))
	var unknown reflect.Value

	for i := range t.NumField() {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("tlv"), ",")
		if isUnknownField(sf) {
			unknown = v.Field(i)
			continue
		}
		if name == "" {
			continue
		}

		for idx, p := range packets {
			if !strings.EqualFold(p.Tag, name) {
				continue
			}
			if err := assign(p, v.Field(i)); err != nil {
				return fmt.Errorf("tag %s into %s: %w", p.Tag, sf.Name, err)
			}
			consumed[idx] = true
		}
	}

	if unknown.IsValid() && unknown.CanSet() {
		for idx, p := range packets {
			if !consumed[idx] {
				unknown.Set(reflect.Append(unknown, reflect.ValueOf(p)))
			}
		}
	}
	return nil
}

func isUnknownField(sf reflect.StructField) bool {
	if sf.Type != reflect.TypeOf([]bertlv.TLV(nil)) {
		return false
	}
	return sf.Tag.Get("tlv") == ",unknown" || sf.Name == "Unknown"
}

// assign appends to slices, otherwise decodes in place.
func assign(p bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decode(p, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decode(p, field)
}

func decode(p bertlv.TLV, field reflect.Value) error {
	raw := rawValue(p)

	if field.Kind() == reflect.Ptr && field.Type().Implements(unmarshalerType) {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field.Interface().(Unmarshaler).UnmarshalTLV(raw)
	}
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(raw)
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(raw)
	case field.Kind() == reflect.String:
		field.SetString(strings.ToUpper(hex.EncodeToString(raw)))
	case field.CanUint():
		if uintptr(len(raw)) > field.Type().Size() {
			return fmt.Errorf("%d byte value overflows %s", len(raw), field.Type())
		}
		var n uint64
		for _, b := range raw {
			n = n<<8 | uint64(b)
		}
		field.SetUint(n)
	case field.Kind() == reflect.Struct:
		return decodeNested(p, field.Addr())
	case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return decodeNested(p, field)
	}
	return nil
}

func decodeNested(p bertlv.TLV, ptr reflect.Value) error {
	if len(p.TLVs) > 0 {
		return UnmarshalFromPackets(p.TLVs, ptr.Interface())
	}
	return Unmarshal(p.Value, ptr.Interface())
}

func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// GetValue returns the value of the first top level occurrence of tag.
func GetValue(data []byte, tag uint) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	want := fmt.Sprintf("%X", tag)
	for _, p := range packets {
		if strings.EqualFold(p.Tag, want) {
			return rawValue(p), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", want, ErrTagNotFound)
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}
