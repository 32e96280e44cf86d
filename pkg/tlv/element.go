package tlv

import "fmt"

// Encoding tells whether an element holds raw bytes or nested elements.
type Encoding uint8

const (
	Primitive Encoding = iota
	Constructed
)

func (e Encoding) String() string {
	switch e {
	case Primitive:
		return "Primitive"
	case Constructed:
		return "Constructed"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Value is the content of an element: either PrimitiveValue or
// ConstructedValue. Use a type switch to branch on it.
type Value interface {
	isValue()
}

// PrimitiveValue is the raw content of a primitive element.
// It is a sub-slice of the decoded buffer, not a copy.
type PrimitiveValue []byte

// ConstructedValue lists the children of a constructed element in wire order.
type ConstructedValue []Element

func (PrimitiveValue) isValue()   {}
func (ConstructedValue) isValue() {}

// Element is one decoded data object.
//
// Raw and the bytes of a PrimitiveValue borrow from the buffer handed to the
// decoder: they remain valid while the caller keeps that buffer unchanged.
// Call Clone to detach an element from its buffer.
type Element struct {
	Tag      Tag
	Encoding Encoding
	Value    Value

	// Length is the declared length of the value field.
	Length int
	// Offset is the position of the first tag byte in the decoded buffer.
	Offset int
	// TagSize and HeaderSize count the bytes of the tag field and of the
	// tag and length fields together.
	TagSize    int
	HeaderSize int
	// Raw is the complete encoding: tag, length and value.
	Raw []byte
}

// Size returns the number of bytes the element occupies on the wire.
func (e Element) Size() int {
	return e.HeaderSize + e.Length
}

// TagBytes returns the tag field exactly as it was encoded.
func (e Element) TagBytes() []byte {
	return e.Raw[:e.TagSize]
}

// Bytes returns the value bytes of a primitive element, or the encoded
// children of a constructed one.
func (e Element) Bytes() []byte {
	return e.Raw[e.HeaderSize:]
}

// Primitive returns the value of a primitive element.
// ok is false for constructed elements.
func (e Element) Primitive() (v []byte, ok bool) {
	p, ok := e.Value.(PrimitiveValue)
	return []byte(p), ok
}

// Children returns the nested elements of a constructed element.
// ok is false for primitive elements.
func (e Element) Children() (children []Element, ok bool) {
	c, ok := e.Value.(ConstructedValue)
	return []Element(c), ok
}

// Clone returns a deep copy that no longer references the decoded buffer.
// Offsets are kept as they were.
func (e Element) Clone() Element {
	out := e
	out.Raw = append([]byte(nil), e.Raw...)

	switch v := e.Value.(type) {
	case PrimitiveValue:
		out.Value = PrimitiveValue(out.Raw[e.HeaderSize:])
	case ConstructedValue:
		children := make(ConstructedValue, len(v))
		for i, child := range v {
			children[i] = child.Clone()
		}
		out.Value = children
	}
	return out
}

func (e Element) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", e.Tag, e.Encoding, e.Length)
}
