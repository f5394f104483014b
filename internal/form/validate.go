package form

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-admin-auth/internal/pkg/validate"
)

// Validate checks values against the required flags and rules of elems and
// returns messages keyed by field path. Rules are skipped for empty optional
// fields.
func Validate(elems []*Element, values url.Values) map[string][]string {
	errs := map[string][]string{}
	for _, e := range elems {
		validateElement(e, nil, values, errs)
	}
	return errs
}

// Validate validates every registered element and stores the messages for the
// next render. It reports whether the values are valid.
func (f *Form) Validate() bool {
	f.Errors = Validate(f.All(), f.Values)
	return len(f.Errors) == 0
}

// validateElement walks e. name, when set, overrides the element's own path.
func validateElement(e *Element, name Path, values url.Values, errs map[string][]string) {
	if name == nil {
		name = e.NamePath()
	}
	switch {
	case e.IsList:
		entries := ListEntries(values, name)
		if e.Required && len(entries) == 0 {
			add(errs, name, fmt.Sprintf("%s is required", e.listLabel()))
		}
		for _, entry := range entries {
			if e.IsLeaf() {
				validateLeaf(e, name.Index(entry.Index), values, errs)
				continue
			}
			for _, child := range e.Nest {
				validateElement(child, name.Index(entry.Index).Append(child.ID), values, errs)
			}
		}
	case !e.IsLeaf():
		for _, child := range e.Nest {
			validateElement(child, nil, values, errs)
		}
	default:
		validateLeaf(e, name, values, errs)
	}
}

func validateLeaf(e *Element, name Path, values url.Values, errs map[string][]string) {
	label := e.labelText()
	if label == "" {
		label = e.ID
	}
	v := strings.TrimSpace(values.Get(name.String()))
	if v == "" {
		if e.Required {
			add(errs, name, fmt.Sprintf("%s is required", label))
		}
		return
	}
	for _, r := range e.Rules {
		if err := validate.Var(v, r.Tag); err != nil {
			msg := r.Message
			if msg == "" {
				msg = fmt.Sprintf("%s %s", label, err)
			}
			add(errs, name, msg)
		}
	}
}

func add(errs map[string][]string, name Path, msg string) {
	k := name.String()
	errs[k] = append(errs[k], msg)
}
