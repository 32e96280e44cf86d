package tlv

import "errors"

// SkipChildren can be returned by a WalkFunc to skip the children of the
// constructed element it was called with.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every element visited by Walk. depth is 0 for
// top-level elements.
type WalkFunc func(depth int, e Element) error

// Walk visits the elements depth-first in wire order. It stops at the first
// error returned by fn, other than SkipChildren, and returns it.
func Walk(elements []Element, fn WalkFunc) error {
	return walk(elements, 0, fn)
}

func walk(elements []Element, depth int, fn WalkFunc) error {
	for _, e := range elements {
		err := fn(depth, e)
		if err == SkipChildren {
			continue
		}
		if err != nil {
			return err
		}

		if children, ok := e.Children(); ok {
			if err := walk(children, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the first element carrying tag, searching nested elements too.
func Find(elements []Element, tag Tag) (Element, bool) {
	var found Element
	stop := errors.New("found")

	err := Walk(elements, func(_ int, e Element) error {
		if e.Tag == tag {
			found = e
			return stop
		}
		return nil
	})

	return found, err == stop
}

// FindAll returns every element carrying tag, in wire order.
func FindAll(elements []Element, tag Tag) []Element {
	var out []Element
	_ = Walk(elements, func(_ int, e Element) error {
		if e.Tag == tag {
			out = append(out, e)
		}
		return nil
	})
	return out
}
