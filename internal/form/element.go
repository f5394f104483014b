// Package form renders admin forms from a tree of element descriptors.
//
// A leaf element renders through its Render func. A group element (Nest != nil)
// renders its children inline or in a 24-unit row. An element with IsList set
// repeats itself once per submitted entry with add and remove buttons.
package form

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// GridUnits is the width of one layout row.
const GridUnits = 24

// Path is a field name split into segments, e.g. addresses.0.street.
type Path []string

// ParsePath splits a dotted name.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func (p Path) String() string { return strings.Join(p, ".") }

// Append returns a new path with segs added; p is not modified.
func (p Path) Append(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Index returns p with an entry index appended.
func (p Path) Index(i int) Path { return p.Append(strconv.Itoa(i)) }

// Rule is a validator tag with an optional message shown instead of the default.
type Rule struct {
	Tag     string
	Message string
}

// Columns lays out a group's children in one row. With Even set every child
// gets GridUnits/n units; otherwise Spans gives each child's width.
type Columns struct {
	Even  bool
	Spans []int
}

func EvenColumns() *Columns         { return &Columns{Even: true} }
func SpanColumns(s ...int) *Columns { return &Columns{Spans: s} }

// spans returns the width of each of n children. Missing explicit spans fall
// back to a full row.
func (c *Columns) spans(n int) []int {
	out := make([]int, n)
	for i := range out {
		switch {
		case c.Even:
			out[i] = GridUnits / n
		case i < len(c.Spans):
			out[i] = c.Spans[i]
		default:
			out[i] = GridUnits
		}
	}
	return out
}

// FieldProps is what a leaf render func receives.
type FieldProps struct {
	ID       string
	Name     Path
	Label    string
	Required bool
	Tooltip  string
	Rules    []Rule
	FieldKey Path
	Value    string
	Errors   []string
}

// RenderFunc renders a leaf. It may return an error or panic; either is caught by
// the error boundary.
type RenderFunc func(props FieldProps) (templ.Component, error)

// ListRenderer replaces the default list rendering.
type ListRenderer func(lc ListContext) templ.Component

// Element describes one field or a group of fields.
type Element struct {
	ID string
	// Name defaults to ID split on ".".
	Name Path
	// Label nil means the ID is used; an empty string means no label.
	Label    *string
	Tooltip  string
	Order    int
	Required bool
	FieldKey Path
	IsList   bool
	Rules    []Rule

	Render RenderFunc

	Nest    []*Element
	Columns *Columns

	ListRenderer ListRenderer
}

// Label returns a pointer for Element.Label.
func Label(s string) *string { return &s }

// IsLeaf reports whether e renders itself rather than children.
func (e *Element) IsLeaf() bool { return e.Nest == nil }

func (e *Element) NamePath() Path {
	if len(e.Name) > 0 {
		return e.Name
	}
	return ParsePath(e.ID)
}

func (e *Element) labelText() string {
	if e.Label == nil {
		return e.ID
	}
	return *e.Label
}

// listLabel mirrors labelText but also falls back to the ID when the label is empty.
func (e *Element) listLabel() string {
	if e.Label == nil || *e.Label == "" {
		return e.ID
	}
	return *e.Label
}

func (e *Element) clone() *Element {
	c := *e
	return &c
}
