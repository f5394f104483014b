package form

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/a-h/templ"
)

// Form is a Consumer that renders its elements against submitted values.
type Form struct {
	Consumer

	Values url.Values
	Errors map[string][]string
	// Boundary replaces a leaf whose render failed. Defaults to a short notice.
	Boundary func(e *Element, err error) templ.Component
	Logger   *slog.Logger
}

func New(elems ...*Element) *Form {
	f := &Form{Values: url.Values{}, Errors: map[string][]string{}}
	f.Add(elems...)
	return f
}

// Render renders every element not yet consumed.
func (f *Form) Render() templ.Component {
	return f.RenderElements(f.Rest())
}

// RenderID consumes and renders one element. Unknown IDs render nothing.
func (f *Form) RenderID(id string) templ.Component {
	e := f.Consume(id)
	if e == nil {
		return group()
	}
	return f.RenderElement(e)
}

func (f *Form) RenderElements(elems []*Element) templ.Component {
	cs := make([]templ.Component, len(elems))
	for i, e := range elems {
		cs[i] = f.RenderElement(e)
	}
	return group(cs...)
}

func (f *Form) RenderElement(e *Element) templ.Component {
	if e.IsList {
		return f.renderList(e)
	}
	return f.formItem(e, nil)
}

// override replaces the computed name and key of a leaf, as list entries do.
type override struct {
	name     Path
	fieldKey Path
}

func (f *Form) formItem(e *Element, ov *override) templ.Component {
	if !e.IsLeaf() {
		if e.Columns == nil {
			return f.RenderElements(e.Nest)
		}
		spans := e.Columns.spans(len(e.Nest))
		cols := make([]templ.Component, len(e.Nest))
		for i, child := range e.Nest {
			cols[i] = withChildren(formCol(spans[i]), f.RenderElement(child))
		}
		return withChildren(formRow(), group(cols...))
	}

	props := FieldProps{
		ID:       e.ID,
		Name:     e.NamePath(),
		Label:    e.labelText(),
		Required: e.Required,
		Tooltip:  e.Tooltip,
		Rules:    e.Rules,
		FieldKey: e.FieldKey,
	}
	if ov != nil {
		props.Name = ov.name
		props.FieldKey = ov.fieldKey
	}
	key := props.Name.String()
	props.Value = f.Values.Get(key)
	props.Errors = f.Errors[key]
	return f.boundary(e, props)
}

// boundary renders a leaf into a buffer so that a failing render leaves no
// partial markup, and swaps in the fallback on error or panic.
func (f *Form) boundary(e *Element, props FieldProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := renderLeaf(ctx, &buf, e, props); err != nil {
			f.logger().Error("form field render failed", "field", e.ID, "err", err)
			return f.fallback(e, err).Render(ctx, w)
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

func renderLeaf(ctx context.Context, w io.Writer, e *Element, props FieldProps) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if e.Render == nil {
		return fmt.Errorf("element %q has no render func", e.ID)
	}
	c, err := e.Render(props)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	return c.Render(ctx, w)
}

func (f *Form) fallback(e *Element, err error) templ.Component {
	if f.Boundary != nil {
		return f.Boundary(e, err)
	}
	return fieldFallback(e.ID)
}

func (f *Form) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
