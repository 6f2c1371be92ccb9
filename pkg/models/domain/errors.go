package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the sync driver can decide between
// fetching, retrying, aborting or isolating a single write.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindSourceUnavailable ErrorKind = "SOURCE_UNAVAILABLE"
	KindAuthentication    ErrorKind = "AUTHENTICATION"
	KindSchema            ErrorKind = "SCHEMA"
	KindWrite             ErrorKind = "WRITE"
	KindInternal          ErrorKind = "INTERNAL"
)

// Error is the error type shared by every stage of the pipeline
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrSchema            = &Error{Kind: KindSchema}
	ErrWrite             = &Error{Kind: KindWrite}
)

func NewInvalidInputError(message string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Err: err}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewSourceUnavailableError(message string, err error) *Error {
	return &Error{Kind: KindSourceUnavailable, Message: message, Err: err}
}

func NewAuthenticationError(message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Err: err}
}

func NewSchemaError(message string, err error) *Error {
	return &Error{Kind: KindSchema, Message: message, Err: err}
}

func NewWriteError(message string, err error) *Error {
	return &Error{Kind: KindWrite, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether a fetch failure may be retried with backoff
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindSourceUnavailable
}
