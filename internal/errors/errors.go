package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"simplesurvey/domain/core"
	"simplesurvey/ports"
)

// AppError is an error crossing the application boundary (API, CLI)
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeLoadFailed        = "LOAD_FAILED"
	CodeUnknownFilter     = "UNKNOWN_FILTER"
	CodeDuplicateQuestion = "DUPLICATE_QUESTION"
	CodeInvalidBreakdown  = "INVALID_BREAKDOWN"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeCancelled         = "CANCELLED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap adds context, keeping the code of a wrapped AppError or deriving one
// from the domain error underneath
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: GetCode(err), Message: message, Cause: err}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode sets the code of an error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{Code: code, Message: appErr.Message, Cause: appErr.Cause}
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError, or the code the
// domain error maps to
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return domainCode(err)
}

func domainCode(err error) string {
	switch {
	case stderrors.Is(err, core.ErrUnknownFilter):
		return CodeUnknownFilter
	case stderrors.Is(err, core.ErrDuplicateQuestion):
		return CodeDuplicateQuestion
	case stderrors.Is(err, core.ErrInvalidBreakdown):
		return CodeInvalidBreakdown
	case stderrors.Is(err, core.ErrConfiguration):
		return CodeConfigInvalid
	case stderrors.Is(err, core.ErrLoad):
		return CodeLoadFailed
	case stderrors.Is(err, ports.ErrReportNotFound):
		return CodeNotFound
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	default:
		return CodeInternalError
	}
}

// FromDomain converts any error into an AppError carrying its code
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: domainCode(err), Message: err.Error()}
}

// HTTPStatus maps an error code to a response status
func HTTPStatus(code string) int {
	switch code {
	case CodeConfigInvalid, CodeUnknownFilter, CodeDuplicateQuestion, CodeInvalidBreakdown, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeLoadFailed:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
