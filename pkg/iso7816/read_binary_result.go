package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/tlv"
)

// Describe renders the exchange as an indented report.
func (r *ReadBinaryResult) Describe() string {
	var sb strings.Builder

	tx0 := r.Trace[0]
	cmd := tx0.Command

	sb.WriteString("=== READ BINARY COMMAND REPORT ===\n")
	fmt.Fprintf(&sb, "[1] Command: READ BINARY (%s)\n", target(cmd.Class))
	fmt.Fprintf(&sb, "    + Block:   %02X (%d)\n", cmd.P2, cmd.P2)
	fmt.Fprintf(&sb, "    + Le:      %d\n", cmd.Ne)

	sw := tx0.Response.Status
	mark, desc := "[OK]", sw.String()
	switch {
	case sw.SW1() == 0x61:
		desc = fmt.Sprintf("%02X (%d) bytes still available", sw.SW2(), sw.SW2())
	case sw != SW_NO_ERROR:
		mark, desc = "[!!]", sw.Verbose()
	}
	fmt.Fprintf(&sb, "    + Result:  [%02X %02X] %s %s\n\n", sw.SW1(), sw.SW2(), mark, desc)

	if len(r.Trace) > 1 {
		fmt.Fprintf(&sb, "[2] Protocol: Auto-handling (%d steps)\n", len(r.Trace))
		fmt.Fprintf(&sb, "    + Final SW: [%04X]\n", uint16(r.Status()))
	}

	sb.WriteString("[=] DATA OUTCOME:\n")
	if data := r.Data(); len(data) > 0 {
		fmt.Fprintf(&sb, "    + Length: %d bytes\n", len(data))
		fmt.Fprintf(&sb, "    + Dump:   %X\n", data)
		fmt.Fprintf(&sb, "    + ASCII:  %q\n", tlv.MakeSafeASCII(data))
	} else {
		sb.WriteString("    - No Data Received.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func target(c Class) string {
	if c.IsReader {
		return "reader"
	}
	return fmt.Sprintf("CLA %02X", c.Raw)
}
