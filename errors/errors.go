// Package errors provides the error taxonomy shared by the tracker client packages.
// It includes error classification, standard error variables, validation results
// and helper functions for consistent error wrapping across the module.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	}
	return "unknown"
}

// Validation errors
var (
	ErrUnknownRoom       = errors.New("unknown room")
	ErrUnknownCommand    = errors.New("unknown room command")
	ErrMissingParam      = errors.New("missing parameter")
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrInvalidURL        = errors.New("invalid websocket url")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidModifier   = errors.New("invalid modifier")
	ErrDuplicateStrategy = errors.New("strategy already exists")
	ErrParsingFailed     = errors.New("parsing failed")
)

// Connection errors
var (
	ErrNotConnected       = errors.New("channel not connected")
	ErrConnectionLost     = errors.New("connection lost")
	ErrReconnectExhausted = errors.New("maximum reconnect attempts reached")
)

// Configuration errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// sentinelClasses classifies errors that carry no ClassifiedError.
var sentinelClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrUnknownRoom, ErrorInvalid},
	{ErrUnknownCommand, ErrorInvalid},
	{ErrMissingParam, ErrorInvalid},
	{ErrInvalidParam, ErrorInvalid},
	{ErrInvalidURL, ErrorInvalid},
	{ErrUnknownStrategy, ErrorInvalid},
	{ErrUnknownChannel, ErrorInvalid},
	{ErrInvalidFilter, ErrorInvalid},
	{ErrInvalidModifier, ErrorInvalid},
	{ErrDuplicateStrategy, ErrorInvalid},
	{ErrParsingFailed, ErrorInvalid},
	{ErrReconnectExhausted, ErrorFatal},
	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
	{ErrNotConnected, ErrorTransient},
	{ErrConnectionLost, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{context.Canceled, ErrorTransient},
}

// Substrings of low level network errors that are worth retrying.
var transientPatterns = []string{"timeout", "connection", "network", "temporary", "unavailable", "broken pipe"}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

// classOf finds an explicit class for err: a validation error, the nearest
// ClassifiedError, or a known sentinel in that order.
func classOf(err error) (ErrorClass, bool) {
	if _, ok := AsValidation(err); ok {
		return ErrorInvalid, true
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class, true
		}
	}
	return 0, false
}

// IsTransient reports whether err may go away on retry. Unclassified errors
// are transient when their text looks like a network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err should stop processing.
func IsFatal(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorFatal
}

// IsInvalid reports whether err was caused by bad input.
func IsInvalid(err error) bool {
	class, ok := classOf(err)
	return ok && class == ErrorInvalid
}

// Classify returns the class of err. Anything unclassified counts as transient.
func Classify(err error) ErrorClass {
	if class, ok := classOf(err); ok {
		return class
	}
	return ErrorTransient
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ErrorInvalid, err, component, method, action)
}
