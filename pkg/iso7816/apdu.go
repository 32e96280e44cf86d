package iso7816

import (
	"bytes"
	"errors"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) and an optional Body.
//
// 1. Header:
//   - CLA (Class): Security, Chaining, Logical Channel.
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc (Length Command): Number of bytes in the data field.
//   - Data: The command payload.
//   - Le (Length Expected): Maximum number of bytes expected in the response.
//
// ENCODING CASES (ISO 7816-3), body layouts:
//
//	Case 1   (empty)
//	Case 2S  Le
//	Case 3S  Lc(1..FF) Data
//	Case 4S  Lc(1..FF) Data Le
//	Case 2E  00 Le(2)
//	Case 3E  00 Lc(2) Data
//	Case 4E  00 Lc(2) Data Le(2)
//
// A short Le of 00 encodes 256, an extended Le of 0000 encodes 65536.
// Extended mode is used when Lc > 255 or Le > 256.
//
// RESPONSE APDU (R-APDU):
// An optional data field followed by the mandatory trailer SW1 SW2.

// APDU Limits and Constants according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	MaxShortLe = 256

	// MaxExtendedLc is the limit for Lc in Extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in Extended Length mode.
	MaxExtendedLe = 65536

	// HeaderSize is the size of CLA INS P1 P2.
	HeaderSize = 4
)

// ErrMalformedCommand indicates a C-APDU whose body matches none of the encoding cases.
var ErrMalformedCommand = errors.New("malformed command APDU")

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// ParseCommandAPDU decodes a raw C-APDU. The instruction byte is validated
// (6X and 9X are rejected); every CLA value is accepted. Data aliases raw.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrMalformedCommand, len(raw), HeaderSize)
	}

	ins, err := NewInstruction(InsCode(raw[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	cmd := &CommandAPDU{
		Class:       ParseClass(raw[0]),
		Instruction: ins,
		P1:          raw[2],
		P2:          raw[3],
	}

	body := raw[HeaderSize:]
	n := len(body)

	switch {
	case n == 0: // Case 1
		return cmd, nil

	case n == 1: // Case 2S
		cmd.Ne = shortLe(body[0])
		return cmd, nil

	case body[0] != 0x00: // Case 3S / 4S
		nc := int(body[0])
		switch n {
		case 1 + nc:
		case 2 + nc:
			cmd.Ne = shortLe(body[n-1])
		default:
			return nil, fmt.Errorf("%w: Lc=%d does not match %d body bytes", ErrMalformedCommand, nc, n)
		}
		cmd.Data = body[1 : 1+nc : 1+nc]
		return cmd, nil

	case n == 3: // Case 2E
		cmd.Ne = extendedLe(body[1], body[2])
		return cmd, nil

	case n > 3: // Case 3E / 4E
		nc := int(body[1])<<8 | int(body[2])
		if nc == 0 {
			return nil, fmt.Errorf("%w: extended Lc of zero", ErrMalformedCommand)
		}
		switch n {
		case 3 + nc:
		case 5 + nc:
			cmd.Ne = extendedLe(body[n-2], body[n-1])
		default:
			return nil, fmt.Errorf("%w: extended Lc=%d does not match %d body bytes", ErrMalformedCommand, nc, n)
		}
		cmd.Data = body[3 : 3+nc : 3+nc]
		return cmd, nil
	}

	return nil, fmt.Errorf("%w: %d body bytes starting with 00", ErrMalformedCommand, n)
}

func shortLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

func extendedLe(hi, lo byte) int {
	ne := int(hi)<<8 | int(lo)
	if ne == 0 {
		return MaxExtendedLe
	}
	return ne
}

// Bytes encodes the CommandAPDU into its byte representation (C-APDU).
// It automatically handles the selection between Short and Extended encoding
// based on the length of Data (Nc) and the expected response length (Ne).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data field too long: %d bytes (max %d)", nc, MaxExtendedLc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("expected length %d out of range [0, %d]", ne, MaxExtendedLe)
	}

	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize + 3 + nc + 2)

	buf.WriteByte(c.Class.Encode())
	buf.WriteByte(byte(c.Instruction.Raw))
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	isExtended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if !isExtended {
			buf.WriteByte(byte(nc))
		} else {
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		if !isExtended {
			// 256 wraps to 00
			buf.WriteByte(byte(ne))
		} else {
			// Case 2E needs the 00 marker that Lc would otherwise carry.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			// 65536 wraps to 0000
			buf.WriteByte(byte(ne >> 8))
			buf.WriteByte(byte(ne))
		}
	}

	return buf.Bytes(), nil
}

// String returns a one-line summary of the command for logs.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("CLA %s | INS %s | P1 %02X P2 %02X | Nc %d | Ne %d",
		c.Class, c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:indexSW1:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// String returns a one-line summary of the response for logs.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
