package tlv

import (
	"math"

	"github.com/gregLibert/pcsc-terminal/pkg/bits"
)

// LENGTH FIELD (X.690, section 8.1.3):
//
//   - Short form: one byte, bit 8 clear, bits 7-1 give the length (0-127).
//   - Long form:  first byte has bit 8 set, bits 7-1 give the number of
//                 subsequent bytes (1-126) holding the length, big-endian.
//   - '80':       indefinite form, content ends with an end-of-contents marker.
//                 Not supported.
//   - 'FF':       reserved.
//
// Smart cards rarely go beyond '82 XX XX' (65535 bytes), but any count up to
// 126 is accepted as long as the value fits in the bytes that are left.

const (
	lengthIndefinite = 0x80
	lengthReserved   = 0x7F
)

// parseLength reads the length field starting at pos and returns the declared
// value length and the number of bytes the field occupies.
func parseLength(buf []byte, pos, end int) (int, int, error) {
	if pos >= end {
		return 0, 0, newDecodeError(ErrTruncatedLength, pos, "missing length byte")
	}

	first := buf[pos]
	if !bits.IsSet(first, 8) {
		return int(first), 1, nil
	}

	if first == lengthIndefinite {
		return 0, 0, newDecodeError(ErrIndefiniteLength, pos, "")
	}

	count := int(bits.GetRange(first, 7, 1))
	if count == lengthReserved {
		return 0, 0, newDecodeError(ErrInvalidLengthEncoding, pos, "length byte %02X", first)
	}

	if end-pos-1 < count {
		return 0, 0, newDecodeError(ErrTruncatedLength, pos, "%d length bytes announced, %d available", count, end-pos-1)
	}

	length := 0
	for _, b := range buf[pos+1 : pos+1+count] {
		// A length that overflows int cannot fit in the remaining bytes either.
		if length > (math.MaxInt-int(b))>>8 {
			return 0, 0, newDecodeError(ErrLengthExceedsBounds, pos, "%d-byte length overflows", count)
		}
		length = length<<8 | int(b)
	}

	return length, 1 + count, nil
}
