package appointment

import (
	"errors"
	"fmt"
)

// Code classifies a service failure for callers and the HTTP boundary.
type Code string

const (
	CodeValidation   Code = "validation"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeQuery        Code = "query"
)

// Error is the single error type returned by Service operations.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of a service error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func validationError(msg string) error {
	return &Error{Code: CodeValidation, Message: msg}
}

func forbiddenError(msg string) error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func queryError(msg string, err error) error {
	return &Error{Code: CodeQuery, Message: msg, Err: err}
}
