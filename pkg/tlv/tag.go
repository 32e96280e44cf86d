package tlv

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/gregLibert/pcsc-terminal/pkg/bits"
)

// TAG FIELD (ISO/IEC 8825-1 / X.690, section 8.1.2):
//
// First byte:
//   - Bits 8-7: Class (00 Universal, 01 Application, 10 Context-specific, 11 Private).
//   - Bit 6:    Encoding (0 Primitive, 1 Constructed).
//   - Bits 5-1: Tag number, when it is 0 to 30.
//
// Bits 5-1 all set (0x1F) announce the high tag number form: the number follows
// in base 128, 7 bits per byte, most significant group first. Bit 8 of each
// subsequent byte is set on every byte except the last one.
//
// Examples: '84' = context-specific primitive #4, 'A5' = context-specific
// constructed #5, '9F38' = context-specific primitive #56, 'BF0C' =
// context-specific constructed #12 (high tag number form).

// Class is the tag class taken from bits 8-7 of the first tag byte.
type Class uint8

const (
	ClassUniversal       Class = 0
	ClassApplication     Class = 1
	ClassContextSpecific Class = 2
	ClassPrivate         Class = 3
)

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "Universal"
	case ClassApplication:
		return "Application"
	case ClassContextSpecific:
		return "Context-specific"
	case ClassPrivate:
		return "Private"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// highTagNumber is the value of bits 5-1 announcing the multi-byte form.
const highTagNumber = 0x1F

// Tag identifies a data element. Tag is comparable and can be used as a map
// key: two tags are equal when their encodings are.
//
// HighForm records that a number below 31 was written in the multi-byte form
// anyway; it is always false for larger numbers. EMV relies on this: '9F02'
// and '82' both carry context-specific number 2 but are different objects.
type Tag struct {
	Class       Class
	Constructed bool
	Number      uint64
	HighForm    bool
}

// Bytes returns the BER encoding of the tag.
func (t Tag) Bytes() []byte {
	first := bits.PutRange(0, 8, 7, byte(t.Class))
	if t.Constructed {
		first = bits.Set(first, 6)
	}

	if t.Number < highTagNumber && !t.HighForm {
		return []byte{bits.PutRange(first, 5, 1, byte(t.Number))}
	}

	// Base-128 groups, least significant first, then reversed.
	var groups []byte
	for n := t.Number; ; n >>= 7 {
		groups = append(groups, byte(n&0x7F))
		if n < 0x80 {
			break
		}
	}

	out := make([]byte, 0, len(groups)+1)
	out = append(out, first|highTagNumber)
	for i := len(groups) - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b = bits.Set(b, 8)
		}
		out = append(out, b)
	}
	return out
}

// String returns the encoded tag in upper case hex, e.g. "9F38".
func (t Tag) String() string {
	return strings.ToUpper(hex.EncodeToString(t.Bytes()))
}

// ParseTag builds a Tag from its hex encoding, e.g. "6F" or "BF0C".
// The whole string must be exactly one encoded tag.
func ParseTag(s string) (Tag, error) {
	raw, err := ParseHex(s)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	if len(raw) == 0 {
		return Tag{}, fmt.Errorf("invalid tag %q: empty", s)
	}

	tag, n, err := parseTag(raw, 0, len(raw))
	if err != nil {
		return Tag{}, err
	}
	if n != len(raw) {
		return Tag{}, newDecodeError(ErrTrailingGarbage, n, "tag %q", s)
	}
	return tag, nil
}

// parseTag reads the tag field starting at pos and returns the number of
// bytes it occupies. The caller guarantees pos < end.
func parseTag(buf []byte, pos, end int) (Tag, int, error) {
	first := buf[pos]
	tag := Tag{
		Class:       Class(bits.GetRange(first, 8, 7)),
		Constructed: bits.IsSet(first, 6),
		Number:      uint64(bits.GetRange(first, 5, 1)),
	}

	if tag.Number != highTagNumber {
		return tag, 1, nil
	}

	tag.Number = 0
	for i := pos + 1; i < end; i++ {
		b := buf[i]
		if tag.Number > math.MaxUint64>>7 {
			return Tag{}, 0, newDecodeError(ErrTagOverflow, pos, "%d tag bytes", i-pos+1)
		}
		tag.Number = tag.Number<<7 | uint64(bits.GetRange(b, 7, 1))
		if !bits.IsSet(b, 8) {
			tag.HighForm = tag.Number < highTagNumber
			return tag, i - pos + 1, nil
		}
	}

	return Tag{}, 0, newDecodeError(ErrTruncatedTag, pos, "no final byte in %d tag bytes", end-pos)
}
