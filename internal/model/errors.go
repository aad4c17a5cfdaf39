package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNoPendingSession = errors.New("no pending session")
)

// Kind classifies a failure for callers that need to decide on retry and
// rate-limit accounting.
type Kind string

const (
	// KindValidation marks a caller bug (missing or malformed input).
	KindValidation Kind = "validation"
	// KindAuth marks a wrong credential or MFA code. Expected, retryable
	// by the user, counts toward rate-limit accounting.
	KindAuth Kind = "auth"
	// KindNetwork marks transient provider unavailability. Never counts
	// toward lockout.
	KindNetwork Kind = "network"
	// KindUnknown marks an unexpected provider response shape.
	KindUnknown Kind = "unknown"
)

// Error is a classified error with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a VALIDATION error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewAuthError creates an AUTH error.
func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// NewNetworkError creates a NETWORK error wrapping the transport cause.
func NewNetworkError(message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}

// NewUnknownError creates an UNKNOWN error wrapping the cause.
func NewUnknownError(message string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown when err is not
// a classified error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the human-readable message carried by err, falling
// back to a generic message so raw errors are never surfaced to users.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong, please try again"
}
