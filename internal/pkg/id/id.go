package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a new ULID string for user ids and outbound request ids.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Valid reports whether s is a well-formed ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
