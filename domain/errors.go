package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalid           ErrorCode = "INVALID"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeRemote            ErrorCode = "REMOTE"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RemoteError marks a failed call to the backing data service.
func RemoteError(operation string, err error) *Error {
	return WrapError(ErrCodeRemote, operation+" failed", err)
}

// MissingField reports an empty required field.
func MissingField(field string) *Error {
	return WrapError(ErrCodeInvalidTransition, "missing required field "+field, ErrMissingField)
}

// Common domain errors.
var (
	ErrUserNotFound         = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound         = NewError(ErrCodeNotFound, "task not found")
	ErrParentNotFound       = NewError(ErrCodeNotFound, "parent task not found")
	ErrUpdateNotFound       = NewError(ErrCodeNotFound, "task update not found")
	ErrUnauthorized         = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidPercentage    = NewError(ErrCodeInvalid, "completion percentage must be between 0 and 100")
	ErrNotSubTask           = NewError(ErrCodeInvalid, "task is not a sub-task of the given parent")
	ErrMissingField         = NewError(ErrCodeInvalidTransition, "missing required field")
	ErrCannotAcceptRejected = NewError(ErrCodeInvalidTransition, "cannot accept a rejected task")
	ErrCannotRejectAccepted = NewError(ErrCodeInvalidTransition, "cannot reject an accepted task")
	ErrAlreadyRejected      = NewError(ErrCodeInvalidTransition, "task is already rejected")
	ErrOnlyCreatorCanCancel = NewError(ErrCodeInvalidTransition, "only the task creator can cancel")
	ErrAlreadyCancelled     = NewError(ErrCodeInvalidTransition, "task is already cancelled")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// IsInvalidTransition reports whether err is a business-rule violation.
func IsInvalidTransition(err error) bool {
	return IsDomainError(err, ErrCodeInvalidTransition)
}
