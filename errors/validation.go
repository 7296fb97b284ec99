package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is the structured failure returned by the public join, leave
// and connect surface. Messages holds one human readable entry per problem found.
type ValidationError struct {
	Component string
	Operation string
	Messages  []string
	// Cause is matched by errors.Is, usually one of the sentinel errors.
	Cause error
}

func (ve *ValidationError) Error() string {
	where := ve.Component
	if ve.Operation != "" {
		where += "." + ve.Operation
	}
	switch {
	case len(ve.Messages) > 0:
		return where + ": " + strings.Join(ve.Messages, "; ")
	case ve.Cause != nil:
		return fmt.Sprintf("%s: %v", where, ve.Cause)
	}
	return where + ": validation failed"
}

func (ve *ValidationError) Unwrap() error { return ve.Cause }

// NewValidation creates a validation error. It returns nil when messages is empty
// so callers can collect problems and return the result unconditionally.
func NewValidation(cause error, component, operation string, messages ...string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Component: component, Operation: operation, Messages: messages, Cause: cause}
}

// AsValidation returns the ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// Messages returns the validation messages carried by err, or a single entry
// holding err's text for any other error. A nil error yields nil.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	if ve, ok := AsValidation(err); ok {
		return append([]string(nil), ve.Messages...)
	}
	return []string{err.Error()}
}
