package utils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeOCR         ErrorType = "ocr"
	ErrorTypeConversion  ErrorType = "conversion"
	ErrorTypeSystem      ErrorType = "system"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypePermission  ErrorType = "permission"
	ErrorTypeNotFound    ErrorType = "not_found"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new application error
func NewError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return NewError(ErrorTypeValidation, message, cause)
}

// NewIOError creates an I/O error
func NewIOError(message string, cause error) *AppError {
	return NewError(ErrorTypeIO, message, cause)
}

// NewOCRError creates an OCR error
func NewOCRError(message string, cause error) *AppError {
	return NewError(ErrorTypeOCR, message, cause)
}

// NewUnsupportedError creates an unsupported operation error
func NewUnsupportedError(message string, cause error) *AppError {
	return NewError(ErrorTypeUnsupported, message, cause)
}

// NewInputError reports a batch document that cannot be read at all.
// It aborts the run before any case is touched.
func NewInputError(message string, cause error) *AppError {
	return NewError(ErrorTypeValidation, message, cause).WithContext("input", true)
}

// NewFetchError reports a failed download. Transient errors are retried.
func NewFetchError(message string, cause error, transient bool) *AppError {
	e := NewError(ErrorTypeNetwork, message, cause)
	e.Recoverable = transient
	return e
}

// NewRasterError reports a PDF that cannot be split into page images
func NewRasterError(message string, cause error) *AppError {
	return NewError(ErrorTypeConversion, message, cause)
}

// NewExtractError reports a case-fatal extraction failure
func NewExtractError(message string, cause error) *AppError {
	return NewError(ErrorTypeOCR, message, cause)
}

// NewWriteError reports a failure to persist the output text
func NewWriteError(message string, cause error) *AppError {
	errorType := ErrorTypeIO
	if errors.Is(cause, fs.ErrPermission) {
		errorType = ErrorTypePermission
	}
	return NewError(errorType, message, cause)
}

// WrapError wraps an existing error with additional context
func WrapError(err error, errorType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the original type unless explicitly overridden
	var appErr *AppError
	if errors.As(err, &appErr) && errorType == "" {
		return &AppError{
			Type:        appErr.Type,
			Message:     message + ": " + appErr.Message,
			Cause:       appErr.Cause,
			Context:     appErr.Context,
			Recoverable: appErr.Recoverable,
		}
	}

	if errorType == "" {
		errorType = classifyError(err)
	}

	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// classifyError automatically classifies an error based on its content
func classifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSystem
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ErrorTypeTimeout
	case strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied"):
		return ErrorTypePermission
	case strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found"):
		return ErrorTypeNotFound
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ErrorTypeNetwork
	case strings.Contains(errStr, "ocr") || strings.Contains(errStr, "extraction"):
		return ErrorTypeOCR
	case strings.Contains(errStr, "convert") || strings.Contains(errStr, "parsing"):
		return ErrorTypeConversion
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "bad"):
		return ErrorTypeValidation
	default:
		return ErrorTypeSystem
	}
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}

	// Default recovery rules based on error type
	switch classifyError(err) {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// IsInputError reports whether err came from NewInputError
func IsInputError(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	_, ok := appErr.Context["input"]
	return ok
}

// GetErrorType extracts the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return classifyError(err)
}

// Describe renders an error for the batch report: the AppError message chain
// without the type prefix.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}
