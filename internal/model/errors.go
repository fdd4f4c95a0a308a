package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine failures.
type ErrorCode string

const (
	// CodeNotFound indicates a referenced list, item, or dependency is absent.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDuplicateKey indicates a list or item key collision.
	CodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// CodeInvalidParent indicates a cross-list parent or a parent cycle.
	CodeInvalidParent ErrorCode = "INVALID_PARENT"

	// CodeCycleDetected indicates a dependency edge would close a cycle.
	CodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// CodeDuplicateDependency indicates the dependency edge already exists.
	CodeDuplicateDependency ErrorCode = "DUPLICATE_DEPENDENCY"

	// CodeDependencyNotSatisfied indicates a status transition blocked by an
	// incomplete dependency target.
	CodeDependencyNotSatisfied ErrorCode = "DEPENDENCY_NOT_SATISFIED"

	// CodeConcurrentModification indicates a transaction conflict.
	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"

	// CodeInvariantViolation indicates an internal consistency check failed.
	// Always fatal to the current operation.
	CodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// CodeInvalidArgument indicates malformed caller input.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeExternalReference indicates a list cannot be deleted because items
	// in other lists depend on its items.
	CodeExternalReference ErrorCode = "EXTERNAL_REFERENCE"
)

// Error is the single error type surfaced by the engine.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the Err* sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && t.Message == ""
	}
	return false
}

// Sentinels for errors.Is comparisons. They match any error with the same code.
var (
	ErrNotFound               = &Error{Code: CodeNotFound}
	ErrDuplicateKey           = &Error{Code: CodeDuplicateKey}
	ErrInvalidParent          = &Error{Code: CodeInvalidParent}
	ErrCycleDetected          = &Error{Code: CodeCycleDetected}
	ErrDuplicateDependency    = &Error{Code: CodeDuplicateDependency}
	ErrDependencyNotSatisfied = &Error{Code: CodeDependencyNotSatisfied}
	ErrConcurrentModification = &Error{Code: CodeConcurrentModification}
	ErrInvariantViolation     = &Error{Code: CodeInvariantViolation}
	ErrInvalidArgument        = &Error{Code: CodeInvalidArgument}
	ErrExternalReference      = &Error{Code: CodeExternalReference}
)

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error with the given code that wraps a cause.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
