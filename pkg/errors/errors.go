// Package errors provides structured error types for the FitGlue community service.
//
// Feed paging, reaction commits and comment writes all surface failures as
// FitGlueError values so callers can branch on the code and retry semantics
// without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error identifier for categorization.
type ErrorCode string

// Common error codes used throughout the service.
const (
	// Social entity errors
	CodePostNotFound    ErrorCode = "POST_NOT_FOUND"
	CodeCommentNotFound ErrorCode = "COMMENT_NOT_FOUND"

	// Paging errors
	CodeFetchFailed      ErrorCode = "FETCH_FAILED"
	CodeInvalidPageToken ErrorCode = "INVALID_PAGE_TOKEN"
	CodeStaleFetch       ErrorCode = "STALE_FETCH"

	// Write errors
	CodeWriteFailed     ErrorCode = "WRITE_FAILED"
	CodeCommitterClosed ErrorCode = "COMMITTER_CLOSED"

	// Infrastructure errors
	CodeStorageError ErrorCode = "STORAGE_ERROR"
	CodePubSubError  ErrorCode = "PUBSUB_ERROR"
	CodeSecretError  ErrorCode = "SECRET_ERROR"

	// General errors
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
	CodeTimeoutError     ErrorCode = "TIMEOUT_ERROR"
)

// FitGlueError is the base error type for all service errors.
// It provides structured error information including error codes,
// retry semantics, and contextual metadata.
type FitGlueError struct {
	Code      ErrorCode         // Unique error code for categorization
	Message   string            // Human-readable error message
	Cause     error             // Underlying error (if any)
	Retryable bool              // Whether the operation can be retried
	Metadata  map[string]string // Additional context
}

// Error implements the error interface.
func (e *FitGlueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *FitGlueError) Unwrap() error {
	return e.Cause
}

// Is matches on error code, so a wrapped sentinel still satisfies errors.Is.
func (e *FitGlueError) Is(target error) bool {
	t, ok := target.(*FitGlueError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *FitGlueError) WithCause(cause error) *FitGlueError {
	return &FitGlueError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessage adds a custom message.
func (e *FitGlueError) WithMessage(msg string) *FitGlueError {
	return &FitGlueError{
		Code:      e.Code,
		Message:   msg,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMetadata adds contextual metadata.
func (e *FitGlueError) WithMetadata(key, value string) *FitGlueError {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	return &FitGlueError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  meta,
	}
}

// Pre-defined sentinel errors for common cases.
// Use these with errors.Is() or wrap them with .WithCause().
var (
	ErrPostNotFound    = &FitGlueError{Code: CodePostNotFound, Message: "post not found", Retryable: false}
	ErrCommentNotFound = &FitGlueError{Code: CodeCommentNotFound, Message: "comment not found", Retryable: false}

	ErrFetchFailed      = &FitGlueError{Code: CodeFetchFailed, Message: "activity page fetch failed", Retryable: true}
	ErrInvalidPageToken = &FitGlueError{Code: CodeInvalidPageToken, Message: "invalid page token", Retryable: false}
	ErrStaleFetch       = &FitGlueError{Code: CodeStaleFetch, Message: "fetch superseded by a newer page transition", Retryable: false}

	ErrWriteFailed     = &FitGlueError{Code: CodeWriteFailed, Message: "write failed", Retryable: true}
	ErrCommitterClosed = &FitGlueError{Code: CodeCommitterClosed, Message: "committer closed", Retryable: false}

	ErrStorageError = &FitGlueError{Code: CodeStorageError, Message: "storage error", Retryable: true}
	ErrPubSubError  = &FitGlueError{Code: CodePubSubError, Message: "pubsub error", Retryable: true}
	ErrSecretError  = &FitGlueError{Code: CodeSecretError, Message: "secret access error", Retryable: true}

	ErrValidation       = &FitGlueError{Code: CodeValidationError, Message: "validation error", Retryable: false}
	ErrMethodNotAllowed = &FitGlueError{Code: CodeMethodNotAllowed, Message: "method not allowed", Retryable: false}
	ErrInternal         = &FitGlueError{Code: CodeInternalError, Message: "internal error", Retryable: false}
	ErrTimeout          = &FitGlueError{Code: CodeTimeoutError, Message: "timeout", Retryable: true}
)

// New creates a new FitGlueError with the given code and message.
func New(code ErrorCode, message string) *FitGlueError {
	return &FitGlueError{
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewRetryable creates a new retryable FitGlueError.
func NewRetryable(code ErrorCode, message string) *FitGlueError {
	return &FitGlueError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// Wrap wraps an error with a FitGlueError.
func Wrap(cause error, code ErrorCode, message string) *FitGlueError {
	return &FitGlueError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: false,
	}
}

// WrapRetryable wraps an error with a retryable FitGlueError.
func WrapRetryable(cause error, code ErrorCode, message string) *FitGlueError {
	return &FitGlueError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var fgErr *FitGlueError
	if stderrors.As(err, &fgErr) {
		return fgErr.Retryable
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// The outermost FitGlueError in the chain wins.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var fgErr *FitGlueError
	if stderrors.As(err, &fgErr) {
		return fgErr.Code
	}
	return CodeInternalError
}

// IsNotFound reports whether err carries one of the not-found codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case CodePostNotFound, CodeCommentNotFound:
		return true
	}
	return false
}
