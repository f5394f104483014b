package form

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

// Option is one choice of a Radio widget.
type Option struct {
	Value string
	Label string
}

// Input renders a labelled <input> of the given type.
func Input(inputType string, attrs ...string) RenderFunc {
	return func(p FieldProps) (templ.Component, error) {
		return withChildren(field(p), textInput(inputType, p, extra(attrs))), nil
	}
}

func Password(attrs ...string) RenderFunc {
	return func(p FieldProps) (templ.Component, error) {
		return withChildren(field(p), passwordInput(p, extra(attrs))), nil
	}
}

// Hidden renders a hidden input without label or errors.
func Hidden() RenderFunc {
	return func(p FieldProps) (templ.Component, error) {
		return hiddenInput(p), nil
	}
}

// Radio renders a radio group. The submitted value, or else the first option, is checked.
func Radio(options ...Option) RenderFunc {
	return func(p FieldProps) (templ.Component, error) {
		if len(options) == 0 {
			return nil, fmt.Errorf("radio %q has no options", p.ID)
		}
		selected := p.Value
		if selected == "" {
			selected = options[0].Value
		}
		return withChildren(field(p), radioGroup(p, options, selected)), nil
	}
}

func fieldID(p FieldProps) string {
	return "field-" + strings.Join(p.Name, "-")
}

// extra turns attribute pairs given as name, value, name, value... into templ attributes.
func extra(attrs []string) templ.Attributes {
	out := make(templ.Attributes, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		out[attrs[i]] = attrs[i+1]
	}
	return out
}
