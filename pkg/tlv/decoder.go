// Package tlv decodes BER-TLV (Basic Encoding Rules - Tag-Length-Value) data,
// the format of the data objects exchanged with ISO/IEC 7816-4 smart cards.
//
// Decoding turns a flat buffer into an ordered tree of Elements:
//
//	elements, err := tlv.Decode(tlv.Hex("6F 07 84 02 A000 50 01 41"))
//	if err != nil {
//	    var de *tlv.DecodeError
//	    if errors.As(err, &de) { ... de.Offset ... }
//	}
//	tlv.Render(os.Stdout, elements)
//
// The decoder is a pure function of its input: it keeps no state between
// calls and may be used from several goroutines at once. Values are not
// copied, see Element for the buffer lifetime rules.
package tlv

// DefaultMaxDepth bounds the nesting of constructed elements for Decode and
// DecodeSingle.
const DefaultMaxDepth = 64

// Decoder decodes BER-TLV buffers. The zero value is not usable, create one
// with NewDecoder.
type Decoder struct {
	maxDepth int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxDepth sets how many constructed elements may be nested inside one
// another. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxDepth returns the configured nesting limit.
func (d *Decoder) MaxDepth() int {
	return d.maxDepth
}

var defaultDecoder = NewDecoder()

// Decode decodes buf as a sequence of top-level elements using the default
// depth limit.
func Decode(buf []byte) ([]Element, error) {
	return defaultDecoder.Decode(buf)
}

// DecodeSingle decodes buf as exactly one element using the default depth
// limit.
func DecodeSingle(buf []byte) (Element, error) {
	return defaultDecoder.DecodeSingle(buf)
}

// Decode decodes the whole of buf as a sequence of top-level elements.
// An empty buffer yields no elements and no error. On failure no element is
// returned.
func (d *Decoder) Decode(buf []byte) ([]Element, error) {
	elements, err := d.decodeRange(buf, 0, len(buf), 0)
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// DecodeSingle decodes the first element of buf and requires it to span the
// whole buffer.
func (d *Decoder) DecodeSingle(buf []byte) (Element, error) {
	if len(buf) == 0 {
		return Element{}, newDecodeError(ErrTruncatedTag, 0, "empty input")
	}

	e, err := d.decodeElement(buf, 0, len(buf), 0)
	if err != nil {
		return Element{}, err
	}

	if next := e.Offset + e.Size(); next != len(buf) {
		return Element{}, newDecodeError(ErrTrailingGarbage, next, "%d extra bytes", len(buf)-next)
	}
	return e, nil
}

// decodeRange decodes buf[pos:end] as a sequence of elements. depth counts
// the constructed elements enclosing the range.
func (d *Decoder) decodeRange(buf []byte, pos, end, depth int) ([]Element, error) {
	var elements []Element

	for pos < end {
		e, err := d.decodeElement(buf, pos, end, depth)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
		pos += e.Size()
	}

	return elements, nil
}

// decodeElement decodes the element starting at pos, which must end no later
// than end.
func (d *Decoder) decodeElement(buf []byte, pos, end, depth int) (Element, error) {
	tag, tagSize, err := parseTag(buf, pos, end)
	if err != nil {
		return Element{}, d.boundaryError(err, pos, depth)
	}

	length, lengthSize, err := parseLength(buf, pos+tagSize, end)
	if err != nil {
		return Element{}, d.boundaryError(err, pos, depth)
	}

	headerSize := tagSize + lengthSize
	valueStart := pos + headerSize
	if length > end-valueStart {
		return Element{}, newDecodeError(ErrLengthExceedsBounds, pos+tagSize,
			"tag %s declares %d bytes, %d left", tag, length, end-valueStart)
	}
	valueEnd := valueStart + length

	e := Element{
		Tag:        tag,
		Length:     length,
		Offset:     pos,
		TagSize:    tagSize,
		HeaderSize: headerSize,
		Raw:        buf[pos:valueEnd:valueEnd],
	}

	if !tag.Constructed {
		e.Encoding = Primitive
		e.Value = PrimitiveValue(buf[valueStart:valueEnd:valueEnd])
		return e, nil
	}

	if depth >= d.maxDepth {
		return Element{}, newDecodeError(ErrDepthExceeded, pos, "limit %d", d.maxDepth)
	}

	children, err := d.decodeRange(buf, valueStart, valueEnd, depth+1)
	if err != nil {
		return Element{}, err
	}

	// decodeRange stops exactly at valueEnd, so the children fill the
	// value; a child cut short by valueEnd was reported by boundaryError.
	e.Encoding = Constructed
	e.Value = ConstructedValue(children)
	return e, nil
}

// boundaryError reclassifies a truncated header inside a constructed value:
// the bytes may well be in the buffer, but the parent's declared length cut
// them off.
func (d *Decoder) boundaryError(err error, pos, depth int) error {
	de, ok := err.(*DecodeError)
	if !ok || depth == 0 {
		return err
	}
	if de.Err != ErrTruncatedTag && de.Err != ErrTruncatedLength {
		return err
	}
	return newDecodeError(ErrConstructedLengthMismatch, pos, "%v", de.Err)
}
