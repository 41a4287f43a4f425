// Package errors defines the client-side failure taxonomy. Network failures
// are classified into these kinds exactly once, at the gateway boundary, and
// re-surfaced to the initiating workflow unchanged.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the category of a classified failure.
type Kind string

const (
	// KindAuthExpired means the session is no longer valid. It triggers a
	// global logout and reset to the unauthenticated root.
	KindAuthExpired Kind = "auth_expired"
	// KindAuthRejected means a login attempt failed. Login-time only; never
	// destroys an existing session.
	KindAuthRejected Kind = "auth_rejected"
	// KindForbidden means the call was authenticated but not authorized.
	KindForbidden Kind = "forbidden"
	// KindValidation means the input failed a client-side check; the call
	// never reached the network.
	KindValidation Kind = "validation"
	// KindNotFound means the referenced resource does not exist.
	KindNotFound Kind = "not_found"
	// KindTimeout means a bounded operation exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindUnavailable means the backend could not be reached or answered
	// with a server error; retryable.
	KindUnavailable Kind = "unavailable"
	// KindRejected means the backend declined the operation for a business
	// reason (e.g. insufficient funds); the message is shown verbatim.
	KindRejected Kind = "rejected"
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage is the single human-readable line shown on the shared
// notification surface.
func (e *Error) UserMessage() string {
	return e.Message
}

func AuthExpired(message string) *Error {
	return &Error{Kind: KindAuthExpired, Message: message}
}

func AuthRejected(message string) *Error {
	return &Error{Kind: KindAuthRejected, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Timeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Cause: cause}
}

func Rejected(message string) *Error {
	return &Error{Kind: KindRejected, Message: message}
}

// KindOf extracts the kind from any error. Unclassified errors report
// KindUnavailable, the retryable default.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == kind
	}
	return false
}
