package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes carried by AppError.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeProtocol      = "PROTOCOL_ERROR"
	CodeUpstream      = "UPSTREAM_ERROR"
)

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

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewConflictError reports a unique-constraint race lost against another writer.
func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewConfigurationError reports missing or invalid server-side settings.
// It is never retryable by the end user.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: message,
	}
}

// NewProtocolError reports a malformed or forged step of a multi-request flow.
func NewProtocolError(message string) *AppError {
	return &AppError{
		Code:    CodeProtocol,
		Message: message,
	}
}

// NewUpstreamError reports a failed call to a third-party service.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err wraps an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status it should be rendered with.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation, CodeProtocol, CodeUpstream:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && exposesCause(appErr.Code) {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// exposesCause reports whether the wrapped cause of code may be shown to
// clients. Driver, upstream and internal causes stay in the logs.
func exposesCause(code string) bool {
	switch code {
	case CodeUpstream, CodeInternal, CodeConflict, CodeConfiguration:
		return false
	}
	return true
}

// Respond renders err with the status StatusFor picks.
func Respond(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusFor(err), err)
}
