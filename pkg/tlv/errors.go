package tlv

import (
	"errors"
	"fmt"
)

// Decoding failures. Every error returned by the decoder is a *DecodeError
// wrapping exactly one of these, so callers can branch with errors.Is.
var (
	ErrTruncatedTag              = errors.New("truncated tag")
	ErrTruncatedLength           = errors.New("truncated length")
	ErrInvalidLengthEncoding     = errors.New("reserved length encoding")
	ErrIndefiniteLength          = errors.New("indefinite length not supported")
	ErrLengthExceedsBounds       = errors.New("length exceeds remaining bytes")
	ErrConstructedLengthMismatch = errors.New("constructed value not filled by its children")
	ErrDepthExceeded             = errors.New("nesting depth exceeded")
	ErrTrailingGarbage           = errors.New("trailing bytes after element")
	ErrTagOverflow               = errors.New("tag number overflows 64 bits")
)

// DecodeError reports why and where decoding stopped.
// Offset is absolute within the buffer passed to Decode.
type DecodeError struct {
	Err    error
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bertlv: %v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("bertlv: %v at offset %d (%s)", e.Err, e.Offset, e.Detail)
}

// Unwrap returns the sentinel error describing the failure kind.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(kind error, offset int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Err:    kind,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
	}
}
