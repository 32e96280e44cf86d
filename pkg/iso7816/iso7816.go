/*
Package iso7816 implements the APDU layer of the ISO/IEC 7816 standard: the
messages a terminal exchanges with a smart card once a reader connection is
open.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success (OK).
  - 0x61XX: Success, but response data is still available (XX bytes).
  - 0x6CXX: Error, wrong length expectation (XX is the correct length).
  - Other: Various error conditions.

# Raw and structured commands

A terminal user types commands as hex bytes. Client.SendRaw transmits them
unchanged and only parses them (ParseCommandAPDU) when a 6CXX status asks for
the command to be repeated with another Le. Programmatic callers build a
CommandAPDU and use Client.Send.

	client := iso7816.NewClient(card, iso7816.WithAutoResponse(true))
	trace, err := client.SendRaw(tlv.Hex("00 A4 04 00 07 A0000000031010 00"))
	if err != nil {
	    return err
	}
	for _, tx := range trace {
	    fmt.Printf("> %X\n< %X %s\n", tx.Raw, tx.Response.Data, tx.Response.Status.Hex())
	}
*/
package iso7816

import (
	"github.com/gregLibert/pcsc-terminal/pkg/logging"
)

var logger = logging.New("ISO7816")
