package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig       ErrorType = "CONFIG"
	ErrTypeConnectivity ErrorType = "CONNECTIVITY"
	ErrTypeQuery        ErrorType = "QUERY"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeExport       ErrorType = "EXPORT"
)

// Process exit codes
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewConnectivityError creates an error for an unreachable or refusing data source
func NewConnectivityError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConnectivity, message, cause)
}

// NewQueryError creates an error for a rejected query or a failed row read
func NewQueryError(message string, cause error) *AppError {
	return NewAppError(ErrTypeQuery, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewExportError creates an error for a failure while assembling output rows
func NewExportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeExport, message, cause)
}

// TypeOf returns the type of the outermost AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsType(err, ErrTypeConfig):
		return ExitConfig
	default:
		return ExitFailed
	}
}
