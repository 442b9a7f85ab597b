// Package apperrors defines the error kinds raised by transaction functions.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies why a transaction function refused to run.
type Kind string

const (
	// KindUnknown is reported for errors that carry no kind, such as store failures.
	KindUnknown Kind = "UNKNOWN"
	// KindValidation covers missing fields, malformed JSON and disallowed enum values.
	KindValidation Kind = "VALIDATION"
	// KindNotFound means a referenced key is absent.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict means the key already exists or the owner does not match.
	KindConflict Kind = "CONFLICT"
	// KindAuthorization means the invoking identity lacks authority for the action.
	KindAuthorization Kind = "AUTHORIZATION"
)

// Error is a kinded domain error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrAuthorization = &Error{Kind: KindAuthorization}
)

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidJSON wraps a decode failure of a JSON argument.
func InvalidJSON(field string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: field + " must be valid JSON", Cause: cause}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Authorization builds an authorization error.
func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
