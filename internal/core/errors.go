// Package core provides the shared types, capability boundaries and error
// taxonomy for the media analysis service.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeValidation indicates a client-caused rejection (4xx)
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeOperational indicates a server-side failure (5xx)
	ErrorTypeOperational ErrorType = "operational_error"
	// ErrorTypeUpstream indicates a failure reported by the detection service
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeRateLimit indicates the detection service throttled the request
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeAuthentication indicates the detection service rejected the API key
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// Error is the base error type for all service errors
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"detail"`
	StatusCode int       `json:"-"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation reports whether the error was caused by the client.
func (e *Error) IsValidation() bool {
	return e.Type == ErrorTypeValidation
}

// ToJSON converts the error to the response body shape
func (e *Error) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"detail": e.Message,
		"type":   e.Type,
	}
}

// NewValidationError creates a client error (400)
func NewValidationError(message string) *Error {
	return &Error{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewOperationalError creates a generic server error (500) carrying the
// underlying failure's description.
func NewOperationalError(message string, err error) *Error {
	return &Error{
		Type:       ErrorTypeOperational,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUpstreamError creates an error reported by the detection service
func NewUpstreamError(statusCode int, message string, err error) *Error {
	return &Error{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewRateLimitError creates a rate limit error (429)
func NewRateLimitError(message string) *Error {
	return &Error{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewAuthenticationError creates an authentication error (401)
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// AsOperational passes validation errors through unchanged and converts every
// other failure into an operational error carrying its description.
func AsOperational(err error) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		if svcErr.IsValidation() {
			return svcErr
		}
		if svcErr.Type == ErrorTypeOperational {
			return svcErr
		}
		return NewOperationalError(svcErr.Message, err)
	}
	return NewOperationalError(err.Error(), err)
}

// ParseUpstreamError parses an error response from the detection service and
// returns an appropriate Error
func ParseUpstreamError(statusCode int, body []byte, originalErr error) *Error {
	var errorResponse struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errorResponse); err == nil {
		switch {
		case errorResponse.Message != "":
			message = errorResponse.Message
		case errorResponse.Error != "":
			message = errorResponse.Error
		}
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewAuthenticationError(message)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(message)
	case statusCode >= 400 && statusCode < 500:
		return NewUpstreamError(statusCode, message, originalErr)
	default:
		return NewUpstreamError(http.StatusBadGateway, message, originalErr)
	}
}
