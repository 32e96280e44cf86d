package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Hex constructs a byte slice from a series of hex strings.
// It panics on malformed input and is meant for tests and constants.
func Hex(parts ...string) []byte {
	data, err := ParseHex(strings.Join(parts, ""))
	if err != nil {
		panic(err.Error())
	}
	return data
}

// ParseHex decodes user supplied hex such as "00 A4 04 00" or "00a40400".
// Whitespace anywhere in the string is ignored.
func ParseHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input '%s': %w", clean, err)
	}
	return data, nil
}

// HexString formats data as space separated upper case bytes, e.g. "AB CD".
func HexString(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// MakeSafeASCII renders data as ASCII, replacing each non printable byte with '.'.
func MakeSafeASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b < 32 || b > 126 {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}
