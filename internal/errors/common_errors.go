package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeEncoding     ErrorType = "ENCODING"
	ErrTypeFormat       ErrorType = "FORMAT"
	ErrTypeEmptyDataset ErrorType = "EMPTY_DATASET"
	ErrTypeNetwork      ErrorType = "NETWORK"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// Sentinels for errors.Is matching. An AppError matches the sentinel of its type.
var (
	ErrEncoding     = errors.New("no candidate encoding produced clean text")
	ErrFormat       = errors.New("header is missing required columns")
	ErrEmptyDataset = errors.New("no rows survived row-level filtering")
	ErrNotFound     = errors.New("not found")
)

var sentinels = map[ErrorType]error{
	ErrTypeEncoding:     ErrEncoding,
	ErrTypeFormat:       ErrFormat,
	ErrTypeEmptyDataset: ErrEmptyDataset,
	ErrTypeNotFound:     ErrNotFound,
}

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

// Is matches the sentinel registered for the error's type
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
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

// NewEncodingError creates an error for bytes no candidate could decode
func NewEncodingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeEncoding, message, cause)
}

// NewFormatError creates an error for a header that lacks required columns
func NewFormatError(message string) *AppError {
	return NewAppError(ErrTypeFormat, message, nil)
}

// NewEmptyDatasetError creates an error carrying the row accounting of a failed parse
func NewEmptyDatasetError(total, valid, skipped int) *AppError {
	return NewAppError(ErrTypeEmptyDataset,
		fmt.Sprintf("no valid rows after parsing (total %d, valid %d, skipped %d)", total, valid, skipped), nil).
		WithContext("total_rows", total).
		WithContext("valid_rows", valid).
		WithContext("skipped_rows", skipped)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsIngestFailure reports whether err aborted ingestion of a file.
func IsIngestFailure(err error) bool {
	return errors.Is(err, ErrEncoding) || errors.Is(err, ErrFormat) || errors.Is(err, ErrEmptyDataset)
}
