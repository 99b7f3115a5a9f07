// Package apperr provides a typed-kind error used to drive HTTP status
// mapping at the API boundary, generalizing the flat sentinel-error
// style into kinds the transport layer can switch on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of HTTP status mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindState        Kind = "state"
	KindPrecondition Kind = "precondition"
	KindAuth         Kind = "auth"
	KindRole         Kind = "role"
	KindRateLimited  Kind = "rate_limited"
	KindPersistence  Kind = "persistence"
	KindInternal     Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a classified error with no underlying cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error. Returns nil
// if err is nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, cause: err}
}

// KindOf extracts the Kind of an error, defaulting to KindInternal when
// the error was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	ErrNotFound     = New(KindNotFound, "not found")
	ErrUnauthorized = New(KindAuth, "unauthorized")
	ErrForbidden    = New(KindRole, "role mismatch")
)
