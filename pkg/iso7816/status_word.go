package iso7816

import (
	"fmt"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// Some status words carry data in SW2:
//   - 61XX: XX more bytes are available through GET RESPONSE.
//   - 6CXX: wrong Le, XX is the right one.
//   - 63CX: counter value X (retries left).
//
// PC/SC Part 3 reuses the ISO codes for storage card access. A READ BINARY
// on a protected page answers 6982 and one past the end of memory answers
// 6A82 or 6B00, depending on the reader firmware.

// StatusWord represents the two-byte status response (SW1-SW2).
type StatusWord uint16

// NewStatusWord creates a StatusWord from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the high byte.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the low byte.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsCounter reports a 63CX counter status.
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bits.GetRange(sw.SW2(), 8, 5) == 0x0C
}

// IsSuccess returns true for 9000 and 61XX.
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR || sw.SW1() == 0x61
}

// IsWarning returns true for 62XX and 63XX.
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true for 64XX to 6FXX.
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return sw1 >= 0x64 && sw1 <= 0x6F
}

// IsAccessDenied reports that the addressed memory exists but is protected.
func (sw StatusWord) IsAccessDenied() bool {
	switch sw {
	case SW_ERR_SECURITY_STATUS_NOT_SAT, SW_ERR_AUTH_METHOD_BLOCKED,
		SW_ERR_COND_OF_USE_NOT_SAT, SW_ERR_CMD_NOT_ALLOWED_NO_EF:
		return true
	}
	return false
}

// IsOutOfRange reports that the addressed memory does not exist.
func (sw StatusWord) IsOutOfRange() bool {
	switch sw {
	case SW_WARN_EOF_REACHED, SW_ERR_FILE_NOT_FOUND, SW_ERR_WRONG_P1P2, SW_ERR_INCORRECT_PARAMS_P1P2:
		return true
	}
	return false
}

// String returns the constant name, or StatusWord(0xXXXX) when unknown.
func (sw StatusWord) String() string {
	if n, ok := swNames[sw]; ok {
		return n
	}
	return fmt.Sprintf("StatusWord(0x%04X)", uint16(sw))
}

// Verbose returns a human-readable description of the status word.
func (sw StatusWord) Verbose() string {
	sw1, sw2 := sw.SW1(), sw.SW2()

	switch {
	case sw.IsCounter():
		return fmt.Sprintf("Warning: State changed, counter = %d", bits.GetRange(sw2, 4, 1))
	case sw1 == 0x61:
		return fmt.Sprintf("Process completed, %d bytes available", sw2)
	case sw1 == 0x6C:
		return fmt.Sprintf("Wrong length, correct Le is %d", sw2)
	}

	if desc, ok := swDescriptions[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), desc)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.category())
}

func (sw StatusWord) category() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Status words returned by PC/SC readers for storage card commands.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_DATA_CORRUPTED     StatusWord = 0x6281
	SW_WARN_EOF_REACHED        StatusWord = 0x6282
	SW_WARN_NV_CHANGED_NO_INFO StatusWord = 0x6300

	SW_ERR_MEMORY_FAILURE StatusWord = 0x6581
	SW_ERR_WRONG_LENGTH   StatusWord = 0x6700

	SW_ERR_CMD_INCOMPATIBLE_FILE   StatusWord = 0x6981
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_AUTH_METHOD_BLOCKED     StatusWord = 0x6983
	SW_ERR_COND_OF_USE_NOT_SAT     StatusWord = 0x6985
	SW_ERR_CMD_NOT_ALLOWED_NO_EF   StatusWord = 0x6986

	SW_ERR_FUNC_NOT_SUPPORTED    StatusWord = 0x6A81
	SW_ERR_FILE_NOT_FOUND        StatusWord = 0x6A82
	SW_ERR_INCORRECT_PARAMS_P1P2 StatusWord = 0x6A86

	SW_ERR_WRONG_P1P2        StatusWord = 0x6B00
	SW_ERR_INS_INVALID       StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED StatusWord = 0x6E00
	SW_ERR_UNKNOWN           StatusWord = 0x6F00
)

var swNames = map[StatusWord]string{
	SW_NO_ERROR:                    "SW_NO_ERROR",
	SW_WARN_DATA_CORRUPTED:         "SW_WARN_DATA_CORRUPTED",
	SW_WARN_EOF_REACHED:            "SW_WARN_EOF_REACHED",
	SW_WARN_NV_CHANGED_NO_INFO:     "SW_WARN_NV_CHANGED_NO_INFO",
	SW_ERR_MEMORY_FAILURE:          "SW_ERR_MEMORY_FAILURE",
	SW_ERR_WRONG_LENGTH:            "SW_ERR_WRONG_LENGTH",
	SW_ERR_CMD_INCOMPATIBLE_FILE:   "SW_ERR_CMD_INCOMPATIBLE_FILE",
	SW_ERR_SECURITY_STATUS_NOT_SAT: "SW_ERR_SECURITY_STATUS_NOT_SAT",
	SW_ERR_AUTH_METHOD_BLOCKED:     "SW_ERR_AUTH_METHOD_BLOCKED",
	SW_ERR_COND_OF_USE_NOT_SAT:     "SW_ERR_COND_OF_USE_NOT_SAT",
	SW_ERR_CMD_NOT_ALLOWED_NO_EF:   "SW_ERR_CMD_NOT_ALLOWED_NO_EF",
	SW_ERR_FUNC_NOT_SUPPORTED:      "SW_ERR_FUNC_NOT_SUPPORTED",
	SW_ERR_FILE_NOT_FOUND:          "SW_ERR_FILE_NOT_FOUND",
	SW_ERR_INCORRECT_PARAMS_P1P2:   "SW_ERR_INCORRECT_PARAMS_P1P2",
	SW_ERR_WRONG_P1P2:              "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:             "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED:       "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:                 "SW_ERR_UNKNOWN",
}

var swDescriptions = map[StatusWord]string{
	SW_NO_ERROR:                    "Success",
	SW_WARN_DATA_CORRUPTED:         "Part of returned data may be corrupted",
	SW_WARN_EOF_REACHED:            "End of memory reached before Le bytes",
	SW_WARN_NV_CHANGED_NO_INFO:     "Operation failed (no further information)",
	SW_ERR_MEMORY_FAILURE:          "Memory failure",
	SW_ERR_WRONG_LENGTH:            "Wrong length",
	SW_ERR_CMD_INCOMPATIBLE_FILE:   "Command incompatible with card",
	SW_ERR_SECURITY_STATUS_NOT_SAT: "Security status not satisfied",
	SW_ERR_AUTH_METHOD_BLOCKED:     "Authentication method blocked",
	SW_ERR_COND_OF_USE_NOT_SAT:     "Conditions of use not satisfied",
	SW_ERR_CMD_NOT_ALLOWED_NO_EF:   "Command not allowed",
	SW_ERR_FUNC_NOT_SUPPORTED:      "Function not supported",
	SW_ERR_FILE_NOT_FOUND:          "Addressed block or byte does not exist",
	SW_ERR_INCORRECT_PARAMS_P1P2:   "Incorrect parameters P1-P2",
	SW_ERR_WRONG_P1P2:              "Wrong parameters P1-P2",
	SW_ERR_INS_INVALID:             "Instruction not supported",
	SW_ERR_CLA_NOT_SUPPORTED:       "Class not supported",
	SW_ERR_UNKNOWN:                 "No precise diagnosis",
}
