package models

import (
	"fmt"
	"net/http"
)

// Error codes carried by AppError. Each maps to exactly one HTTP status.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeTooLarge           = "TOO_LARGE"
	CodeUnsupportedType    = "UNSUPPORTED_TYPE"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeUpstreamAuth       = "UPSTREAM_AUTH"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeStorage            = "STORAGE_ERROR"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// Status returns the HTTP status for the error code.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation, CodeTooLarge, CodeUnsupportedType, CodeUpstreamAuth:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidCredentials, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewTooLargeError(limitBytes int64) *AppError {
	return &AppError{
		Code:    CodeTooLarge,
		Message: fmt.Sprintf("File too large. Maximum %dMB.", limitBytes>>20),
	}
}

func NewUnsupportedTypeError(mimeType string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedType,
		Message: fmt.Sprintf("File type %q is not allowed", mimeType),
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

func NewInvalidTokenError(err error) *AppError {
	return &AppError{
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
		Err:     err,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewUpstreamAuthError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamAuth,
		Message: message,
		Err:     err,
	}
}

func NewUpstreamError(err error) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: "Failed to sync with upstream feed",
		Err:     err,
	}
}

func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    CodeStorage,
		Message: "Internal server error",
		Err:     err,
	}
}
