// Package apperr defines the error taxonomy shared by every service operation.
// Services translate raw repository and storage failures into one of these
// kinds before the transport layer ever sees them.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the client.
type Kind string

const (
	KindNotFound   Kind = "not-found"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindUnknown    Kind = "unknown"
)

// Error is a classified failure with a message safe to show to the client.
// Details carries debug-only context (e.g. store error text) and is never
// required by the client.
type Error struct {
	Kind          Kind
	ClientMessage string
	Details       string
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.ClientMessage, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.ClientMessage)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error and returns the same *Error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// NotFoundf builds a not-found error with a formatted client message.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, ClientMessage: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error with a formatted client message.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, ClientMessage: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation error with a formatted client message.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, ClientMessage: fmt.Sprintf(format, args...)}
}

// Authf builds an auth error with a formatted client message.
func Authf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuth, ClientMessage: fmt.Sprintf(format, args...)}
}

// Unknownf builds an unknown-kind error wrapping an unexpected failure.
func Unknownf(err error, format string, args ...interface{}) *Error {
	return (&Error{Kind: KindUnknown, ClientMessage: fmt.Sprintf(format, args...)}).WithCause(err)
}

// From extracts the *Error from err, or wraps err as unknown with a generic
// client message.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return (&Error{Kind: KindUnknown, ClientMessage: "something went wrong"}).WithCause(err)
}

// KindOf reports the Kind of err, defaulting to unknown.
func KindOf(err error) Kind {
	return From(err).Kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
