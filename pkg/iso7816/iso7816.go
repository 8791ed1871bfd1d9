/*
Package iso7816 implements the APDU layer used to talk to a contactless
reader through PC/SC.

Storage cards such as MIFARE Ultralight do not speak ISO 7816-4 themselves.
PC/SC readers expose them through pseudo-APDUs with the reserved class byte
0xFF (PC/SC Part 3), which the reader translates into the card's native
commands. This package provides the generic pieces: command encoding,
response parsing, status words and a Client that hides the T=0 retry
procedures.

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success.
  - 0x61XX: Success, XX more bytes are waiting (GET RESPONSE).
  - 0x6CXX: Wrong Le, XX is the correct length.
  - 0x6982: Security status not satisfied (page is password protected).
  - 0x6A82 / 0x6B00: Address outside the card memory.

# Usage

	client := iso7816.NewClient(card)
	trace, err := client.Send(iso7816.NewCommandAPDU(iso7816.ReaderClass(), ins, 0x00, page, nil, 4))
	if err != nil {
	    return err
	}
	if !trace.IsSuccess() {
	    log.Printf("read failed: %s", trace.Last().Response.Status.Verbose())
	}
*/
package iso7816
