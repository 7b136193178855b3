// Package model holds the shared vocabulary of the engine: the error
// taxonomy, security levels, governance zones, and the numeric limits
// every other package agrees on.
package model

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of an engine operation. Exactly one
// code applies to any failure; codes never overlap and never imply a
// retry.
type Code int

const (
	// CodeInvalidInput marks a malformed argument for the attempted
	// operation, including use of a destroyed handle.
	CodeInvalidInput Code = iota + 1
	// CodeValidationFailed marks content that failed a structural or
	// semantic validation step.
	CodeValidationFailed
	// CodeAuditRequired marks an operation that needs a prior
	// successful audit pass which has not occurred.
	CodeAuditRequired
	// CodeZeroTrustViolation marks an attempt to construct or mutate
	// state in a way that would weaken zero-trust enforcement.
	CodeZeroTrustViolation
	// CodeBufferOverflow marks content that exceeds a fixed capacity.
	// Content is never truncated to fit.
	CodeBufferOverflow
	// CodeNumericalInstability marks a non-finite or out-of-range
	// numeric result, or weights that cannot produce one.
	CodeNumericalInstability
	// CodeSinphaseViolation marks a governance classification beyond
	// the caller-declared hard limit.
	CodeSinphaseViolation
)

func (c Code) String() string {
	switch c {
	case CodeInvalidInput:
		return "INVALID_INPUT"
	case CodeValidationFailed:
		return "VALIDATION_FAILED"
	case CodeAuditRequired:
		return "AUDIT_REQUIRED"
	case CodeZeroTrustViolation:
		return "ZERO_TRUST_VIOLATION"
	case CodeBufferOverflow:
		return "BUFFER_OVERFLOW"
	case CodeNumericalInstability:
		return "NUMERICAL_INSTABILITY"
	case CodeSinphaseViolation:
		return "SINPHASE_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// Error is the tagged error type crossing every package boundary of the
// engine. Op names the operation that failed, Detail says what went
// wrong, Err optionally carries the underlying cause.
type Error struct {
	Code   Code
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a tagged error with a formatted detail message.
func Errorf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds a tagged error around an underlying cause.
func Wrap(code Code, op, detail string, err error) *Error {
	return &Error{Code: code, Op: op, Detail: detail, Err: err}
}

// CodeOf extracts the taxonomy code from err. The second return is
// false when err carries no tagged error anywhere in its chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, c Code) bool {
	got, ok := CodeOf(err)
	return ok && got == c
}
