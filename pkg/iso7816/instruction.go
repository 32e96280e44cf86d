package iso7816

import (
	"fmt"

	"github.com/gregLibert/pcsc-terminal/pkg/bits"
)

// Instruction Byte (INS) according to ISO/IEC 7816-4, section 5.4.2.
//
// Bit 1 of an interindustry INS often selects the data field format: even
// codes carry plain data, odd codes BER-TLV (B0 READ BINARY, B1 READ BINARY
// with BER-TLV data). Codes 6X and 9X are not instructions: on T=0 those
// values are procedure bytes and status words.

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Common instruction codes.
const (
	INS_SELECT       InsCode = 0xA4
	INS_READ_BINARY  InsCode = 0xB0
	INS_GET_RESPONSE InsCode = 0xC0
	INS_GET_DATA     InsCode = 0xCA
)

// Instruction is a validated INS byte.
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction rejects 6X and 9X.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch bits.GetRange(byte(ins), 8, 5) {
	case 0x6, 0x9:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}
	return Instruction{Raw: ins, IsBERTLV: bits.IsSet(byte(ins), 1)}, nil
}

// Verbose names the command and its data format, e.g. "A4 SELECT".
// BER-TLV variants are suffixed with "(BER-TLV)".
func (i Instruction) Verbose() string {
	s := fmt.Sprintf("%02X %s", byte(i.Raw), i.Raw)
	if i.IsBERTLV {
		s += " (BER-TLV)"
	}
	return s
}

// String returns the ISO command name, or "INS 3A" when the code is not
// assigned. Odd codes share the name of their even counterpart.
func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	if name, ok := insNames[InsCode(bits.Clear(byte(i), 1))]; ok {
		return name
	}
	return fmt.Sprintf("INS %02X", byte(i))
}

// insNames holds the interindustry commands of ISO/IEC 7816-4 table 4 and
// 7816-9. Entries exist for even codes only, except where the odd code is a
// different command.
var insNames = map[InsCode]string{
	0x04: "DEACTIVATE FILE",
	0x0C: "ERASE RECORD",
	0x0E: "ERASE BINARY",
	0x10: "PERFORM SCQL OPERATION",
	0x12: "PERFORM TRANSACTION OPERATION",
	0x14: "PERFORM USER OPERATION",
	0x20: "VERIFY",
	0x22: "MANAGE SECURITY ENVIRONMENT",
	0x24: "CHANGE REFERENCE DATA",
	0x26: "DISABLE VERIFICATION REQUIREMENT",
	0x28: "ENABLE VERIFICATION REQUIREMENT",
	0x2A: "PERFORM SECURITY OPERATION",
	0x2C: "RESET RETRY COUNTER",
	0x44: "ACTIVATE FILE",
	0x46: "GENERATE ASYMMETRIC KEY PAIR",
	0x70: "MANAGE CHANNEL",
	0x82: "EXTERNAL AUTHENTICATE",
	0x84: "GET CHALLENGE",
	0x86: "GENERAL AUTHENTICATE",
	0x88: "INTERNAL AUTHENTICATE",
	0xA0: "SEARCH BINARY",
	0xA2: "SEARCH RECORD",
	0xA4: "SELECT",
	0xB0: "READ BINARY",
	0xB2: "READ RECORD",
	0xC0: "GET RESPONSE",
	0xC2: "ENVELOPE",
	0xCA: "GET DATA",
	0xD0: "WRITE BINARY",
	0xD2: "WRITE RECORD",
	0xD6: "UPDATE BINARY",
	0xDA: "PUT DATA",
	0xDC: "UPDATE RECORD",
	0xE0: "CREATE FILE",
	0xE2: "APPEND RECORD",
	0xE4: "DELETE FILE",
	0xE6: "TERMINATE DF",
	0xE8: "TERMINATE EF",
	0xFE: "TERMINATE CARD USAGE",
}
