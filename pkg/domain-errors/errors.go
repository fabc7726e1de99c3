// Package domainerrors defines the error taxonomy shared by services and transports.
//
// Services return *Error values carrying a stable Code. Transports map the code to
// a status and render the message; stores never construct these directly and
// return pkg/platform/sentinel errors instead.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-checkable error kind.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeExpired            Code = "expired"
	CodeAttemptsExhausted  Code = "attempts_exhausted"
	CodeInvalidCode        Code = "invalid_code"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error with a code, a human readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
	// Meta carries extra response fields, e.g. remaining verification attempts.
	Meta map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithMeta returns a copy of err with key set in its metadata. Non-domain errors
// are wrapped as internal errors first.
func WithMeta(err error, key string, value any) error {
	var de *Error
	if !errors.As(err, &de) {
		de = &Error{Code: CodeInternal, Message: "internal error", Err: err}
	}
	out := *de
	out.Meta = make(map[string]any, len(de.Meta)+1)
	for k, v := range de.Meta {
		out.Meta[k] = v
	}
	out.Meta[key] = value
	return &out
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal when err is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// As extracts the domain error from err.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
