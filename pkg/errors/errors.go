package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Common error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// Battle lifecycle error codes
const (
	ErrCodeNotJoinable       = "NOT_JOINABLE"
	ErrCodeAlreadyJoined     = "ALREADY_JOINED"
	ErrCodeNotActive         = "NOT_ACTIVE"
	ErrCodeNotParticipant    = "NOT_PARTICIPANT"
	ErrCodeAlreadySubmitted  = "ALREADY_SUBMITTED"
	ErrCodeDeliveryFailure   = "DELIVERY_FAILURE"
	ErrCodeEvaluationFailure = "EVALUATION_FAILURE"
	ErrCodeDependencyFailure = "DEPENDENCY_FAILURE"
)
