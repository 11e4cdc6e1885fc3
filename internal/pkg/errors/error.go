package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    int    // Business error code
	Message string // Human-readable message
	Err     error  // Underlying error (if any)
	Details string // Additional details
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		if e.Details != "" {
			return fmt.Sprintf("[%d] %s: %s: %v", e.Code, e.Message, e.Details, e.Err)
		}
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	return GetHTTPStatus(e.Code)
}

// Reason returns the text shown to the user: details when present, otherwise the code message
func (e *AppError) Reason() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// New creates a new AppError with the given code
func New(code int, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Details: detail,
	}
}

// Newf creates a new AppError with formatted details
func Newf(code int, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an error code.
// An error that already carries a code keeps it.
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if detail == "" {
			return appErr
		}
		return &AppError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Err:     appErr.Err,
			Details: detail,
		}
	}

	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Err:     err,
		Details: detail,
	}
}

// Is checks if err is an AppError with the given code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ExtractCode extracts the error code from an error
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// GetDetails extracts error details
func GetDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// NewConnectionError creates a connection-class error
func NewConnectionError(err error, details ...string) *AppError {
	if err == nil {
		return New(ErrConnection, details...)
	}
	return Wrap(err, ErrConnection, details...)
}

// NewDecodeError creates an error for a frame that could not be parsed
func NewDecodeError(details ...string) *AppError {
	return New(ErrDecode, details...)
}

// NewShapeError creates an error for a payload that does not match its event type
func NewShapeError(eventType, details string) *AppError {
	return Newf(ErrPayloadShape, "%s: %s", eventType, details)
}
