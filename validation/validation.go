// Package validation holds the field-level rules shared by the user and
// task models.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Error reports a single field that failed validation. Transports surface
// it as a client error together with the field name.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Reason
}

// Parse reverses Error.Error, for clients reading an error message off
// the wire.
func Parse(s string) (*Error, bool) {
	parts := strings.SplitN(s, ": ", 2)
	if len(parts) != 2 || parts[0] == "" || strings.ContainsAny(parts[0], " \t") {
		return nil, false
	}
	return &Error{Field: parts[0], Reason: parts[1]}, true
}

// Required fails when value is empty.
func Required(field, value string) error {
	if value == "" {
		return &Error{Field: field, Reason: "is required"}
	}
	return nil
}

// MinLength fails when value has fewer than n characters.
func MinLength(field, value string, n int) error {
	if utf8.RuneCountInString(value) < n {
		return &Error{Field: field, Reason: fmt.Sprintf("must be at least %d characters", n)}
	}
	return nil
}

// Email fails unless value is a bare, syntactically valid address.
func Email(field, value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@")+1:], ".") {
		return &Error{Field: field, Reason: fmt.Sprintf("%q is not a valid email", value)}
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
