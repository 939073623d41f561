// Package errors provides code-tagged domain errors.
//
// Services return these so transport layers can map failures to responses
// without string matching, and so tests can assert on failure class rather
// than message text. Stores return pkg/platform/sentinel errors; services
// translate them into domain errors with the appropriate code.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeInvalidInput marks input rejected at a trust boundary. Never retried.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeValidation marks a blocking validation finding, e.g. the registry
	// name similarity falling below the merge threshold.
	CodeValidation Code = "validation_failed"

	// CodeConflict marks a uniqueness conflict that survived internal retry.
	CodeConflict Code = "conflict"

	// CodeExternalLookup marks an external dependency failure. Non-fatal to
	// callers; services log and degrade.
	CodeExternalLookup Code = "external_lookup_failed"

	// CodeTransactionFailed marks a rolled-back merge transaction. Retryable.
	CodeTransactionFailed Code = "transaction_failed"

	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf attaches a code and a formatted message to an underlying error.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
