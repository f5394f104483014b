package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Var validates a single value against a validator tag such as "required,email".
// The returned error names the failing tag.
func Var(value interface{}, tag string) error {
	if err := v.Var(value, tag); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok || len(ve) == 0 {
			return err
		}
		return fmt.Errorf("failed '%s'", ve[0].Tag())
	}
	return nil
}
