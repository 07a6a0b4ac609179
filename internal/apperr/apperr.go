package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the fixed taxonomy exposed to callers.
// Collaborator-specific error types never cross the service boundary; every
// error a service returns is an *Error carrying exactly one Kind.
type Kind int

const (
	Internal Kind = iota
	NotFound
	Forbidden
	BadRequest
	QuotaExceeded
	Conflict
	StorageWrite
	StorageRead
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case Forbidden:
		return "FORBIDDEN"
	case BadRequest:
		return "BAD_REQUEST"
	case QuotaExceeded:
		return "QUOTA_EXCEEDED"
	case Conflict:
		return "CONFLICT"
	case StorageWrite:
		return "STORAGE_WRITE"
	case StorageRead:
		return "STORAGE_READ"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a classified failure with a human-readable message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match two *Error values by kind, so tests and handlers
// can compare against a bare New(kind, "") sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an *Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil cause yields nil.
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors are
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the safe, user-facing message for an error chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
