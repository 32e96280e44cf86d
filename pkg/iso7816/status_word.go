package iso7816

import (
	"fmt"

	"github.com/gregLibert/pcsc-terminal/pkg/bits"
)

// STATUS WORD (ISO/IEC 7816-4, section 5.6):
//
// SW1 groups the statuses:
//
//	90 00        normal processing
//	61 XX        normal processing, XX more bytes to fetch with GET RESPONSE
//	62 XX, 63 XX warning
//	64 XX..66 XX execution error
//	67 00..6F XX checking error
//
// Some SW2 values carry a number rather than a code: 6CXX gives the correct
// Le, 62XX and 64XX with XX in 02..80 announce a query of XX bytes
// ("triggering by the card"), and 63CX holds a counter (e.g. PIN retries).

// StatusWord represents the two-byte status response (SW1-SW2) returned by the smart card.
type StatusWord uint16

// Status words referenced by name.
const (
	SW_NO_ERROR           StatusWord = 0x9000
	SW_ERR_FILE_NOT_FOUND StatusWord = 0x6A82
	SW_ERR_INS_INVALID    StatusWord = 0x6D00
)

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// Hex formats the status word the way the terminal prints it, e.g. "90 00".
func (sw StatusWord) Hex() string {
	return fmt.Sprintf("%02X %02X", sw.SW1(), sw.SW2())
}

// Verbose explains the status word, e.g. "6A82: File or application not found".
func (sw StatusWord) Verbose() string {
	return fmt.Sprintf("%04X: %s", uint16(sw), sw.meaning())
}

func (sw StatusWord) meaning() string {
	sw1, sw2 := sw.SW1(), sw.SW2()

	switch {
	case sw1 == 0x61:
		return fmt.Sprintf("%d bytes available", shortLe(sw2))
	case sw1 == 0x6C:
		return fmt.Sprintf("Wrong Le, %d bytes available", shortLe(sw2))
	case (sw1 == 0x62 || sw1 == 0x64) && sw2 >= 0x02 && sw2 <= 0x80:
		return fmt.Sprintf("Triggering by the card, query of %d bytes expected", sw2)
	case sw1 == 0x63 && bits.GetRange(sw2, 8, 5) == 0x0C:
		return fmt.Sprintf("Counter %d", bits.GetRange(sw2, 4, 1))
	}

	if m, ok := swMeanings[sw]; ok {
		return m
	}
	if m, ok := sw1Meanings[sw1]; ok {
		return m
	}
	return "Unknown status"
}

var sw1Meanings = map[byte]string{
	0x62: "Warning, state of non-volatile memory unchanged",
	0x63: "Warning, state of non-volatile memory changed",
	0x64: "Execution error, state of non-volatile memory unchanged",
	0x65: "Execution error, state of non-volatile memory changed",
	0x66: "Execution error, security related",
	0x67: "Wrong length",
	0x68: "Functions in CLA not supported",
	0x69: "Command not allowed",
	0x6A: "Wrong parameters P1-P2",
	0x6B: "Wrong parameters P1-P2",
	0x6D: "Instruction code not supported or invalid",
	0x6E: "Class not supported",
	0x6F: "No precise diagnosis",
}

var swMeanings = map[StatusWord]string{
	0x9000: "No error",
	0x6281: "Part of returned data may be corrupted",
	0x6282: "End of file or record reached before reading Ne bytes",
	0x6283: "Selected file deactivated",
	0x6284: "File control information not formatted",
	0x6285: "Selected file in termination state",
	0x6286: "No input data available from a sensor on the card",
	0x6381: "File filled up by the last write",
	0x6401: "Immediate response required by the card",
	0x6581: "Memory failure",
	0x6881: "Logical channel not supported",
	0x6882: "Secure messaging not supported",
	0x6883: "Last command of the chain expected",
	0x6884: "Command chaining not supported",
	0x6981: "Command incompatible with file structure",
	0x6982: "Security status not satisfied",
	0x6983: "Authentication method blocked",
	0x6984: "Reference data not usable",
	0x6985: "Conditions of use not satisfied",
	0x6986: "Command not allowed (no current EF)",
	0x6987: "Expected secure messaging data objects missing",
	0x6988: "Incorrect secure messaging data objects",
	0x6A80: "Incorrect parameters in the command data field",
	0x6A81: "Function not supported",
	0x6A82: "File or application not found",
	0x6A83: "Record not found",
	0x6A84: "Not enough memory space in the file",
	0x6A85: "Nc inconsistent with TLV structure",
	0x6A86: "Incorrect parameters P1-P2",
	0x6A87: "Nc inconsistent with parameters P1-P2",
	0x6A88: "Referenced data or reference data not found",
	0x6A89: "File already exists",
	0x6A8A: "DF name already exists",
}
