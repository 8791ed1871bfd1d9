package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex builds a byte slice from hex fragments such as "FF CA 00 00" or
// "04:A1:B2". It panics on malformed input and is meant for constants and
// test fixtures.
func Hex(parts ...string) []byte {
	clean := strings.NewReplacer(" ", "", ":", "").Replace(strings.Join(parts, ""))

	data, err := hex.DecodeString(clean)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", clean, err))
	}
	return data
}
