// Package errors provides the structured error types used by the doc server
// and the mapping from those errors to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeMetadata   ErrorType = "metadata"
	ErrorTypeBind       ErrorType = "bind"
	ErrorTypeSpawn      ErrorType = "spawn"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
)

// DocError is a structured error type with context.
type DocError struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DocError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *DocError) Is(target error) bool {
	var t *DocError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DocError) WithContext(key string, value interface{}) *DocError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the filesystem path the error concerns.
func (e *DocError) WithPath(path string) *DocError {
	e.Path = path

	return e
}

// NewNotFoundError creates an error for a missing documentation file.
func NewNotFoundError(path string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeNotFound,
		Code:    "ERR_NOT_FOUND",
		Message: "file not found",
		Path:    path,
		Cause:   cause,
	}
}

// NewIOError creates an error for a failed filesystem operation.
func NewIOError(path string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeIO,
		Code:    "ERR_IO",
		Message: "failed to read file",
		Path:    path,
		Cause:   cause,
	}
}

// NewMetadataError creates an error for a failed project metadata lookup.
func NewMetadataError(message string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeMetadata,
		Code:    "ERR_METADATA",
		Message: message,
		Cause:   cause,
	}
}

// NewBindError creates an error for a listener that could not be acquired.
func NewBindError(addr string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeBind,
		Code:    "ERR_BIND",
		Message: "failed to listen on " + addr,
		Cause:   cause,
	}
}

// NewSpawnError creates an error for a rebuild command that did not start.
func NewSpawnError(command string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeSpawn,
		Code:    "ERR_SPAWN",
		Message: "failed to start " + command,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *DocError {
	return &DocError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *DocError {
	return &DocError{
		Type:    ErrorTypeConfig,
		Code:    "ERR_CONFIG",
		Message: message,
		Cause:   cause,
	}
}

// ClassifyRead wraps an error returned while reading path into a NotFound or
// IO error. Names an fs.FS refuses as invalid count as missing.
func ClassifyRead(path string, err error) *DocError {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return NewNotFoundError(path, err)
	}

	return NewIOError(path, err)
}

// TypeOf returns the ErrorType of the first DocError in err's chain, or the
// empty string.
func TypeOf(err error) ErrorType {
	var de *DocError
	if errors.As(err, &de) {
		return de.Type
	}

	return ""
}

// IsNotFound reports whether err should be presented as a missing file.
func IsNotFound(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNotFound, ErrorTypeValidation:
		return true
	}

	return false
}

// HTTPStatus maps an error raised while handling a request to a status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if IsNotFound(err) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}
