package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so transport layers can map it
// to a status code without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindNotFound
	KindInternal
)

// Error is the application error carried between services and controllers.
// Message is human-readable and safe to show to the caller verbatim.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Authentication required."
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found."}
}

// Internal wraps a storage or infrastructure failure. The wrapped error is
// preserved for logs; callers only see the generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "An unexpected error occurred.", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for anything that is not
// an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
