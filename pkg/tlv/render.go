package tlv

import (
	"fmt"
	"io"
	"strings"
)

// TREE RENDERING:
// One line per element, indented by two spaces per nesting level.
//
//	0x6F
//	  0x84: (RAW) A0 00 00 00 03 10 10
//	  0xA5
//	    0x50: (RAW) 56 49 53 41
//
// Tags are printed as they were encoded, so a high tag number form shows
// all of its bytes (0x9F38, 0xBF0C).

const indent = "  "

// Render writes the tree of elements to w.
func Render(w io.Writer, elements []Element) error {
	return Walk(elements, func(depth int, e Element) error {
		_, err := io.WriteString(w, renderLine(depth, e))
		return err
	})
}

// Describe returns the rendered tree as a string, without a trailing newline.
func Describe(elements []Element) string {
	var sb strings.Builder
	_ = Render(&sb, elements)
	return strings.TrimRight(sb.String(), "\n")
}

func renderLine(depth int, e Element) string {
	prefix := strings.Repeat(indent, depth)
	tag := fmt.Sprintf("0x%X", e.TagBytes())

	if value, ok := e.Primitive(); ok {
		return fmt.Sprintf("%s%s: (RAW) %s\n", prefix, tag, HexString(value))
	}
	return prefix + tag + "\n"
}
