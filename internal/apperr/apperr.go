// Package apperr defines the error taxonomy shared by the service and
// repository layers. Handlers translate a Kind into an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindPastDate           Kind = "PAST_DATE"
	KindInvalidMethod      Kind = "INVALID_METHOD"
	KindInvalidStatus      Kind = "INVALID_STATUS"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindAlreadyPaid        Kind = "ALREADY_PAID"
	KindInvalidState       Kind = "INVALID_STATE"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindDuplicateAccount   Kind = "DUPLICATE_ACCOUNT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInternal           Kind = "INTERNAL"
)

// Error is an application error carrying a Kind and a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }

// Internal wraps an unexpected storage or encoding failure.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf reports the Kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
