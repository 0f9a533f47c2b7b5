package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"errors,omitempty"`
	Err     error        `json:"-"`
}

// FieldError is a validation failure scoped to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrValidation
	ErrPermissionDenied
)

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewValidation wraps field errors. The message is the first field's message
// so clients that only read "message" still show something specific.
func NewValidation(fields []FieldError) *AppError {
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &AppError{
		Code:    ErrValidation,
		Message: msg,
		Fields:  fields,
	}
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func NewUnauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
		Err:     err,
	}
}

func PermissionDenied(message string) *AppError {
	return &AppError{
		Code:    ErrPermissionDenied,
		Message: message,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
