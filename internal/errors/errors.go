// Package errors defines the service error taxonomy shared by services,
// middleware and the HTTP layer. Every caller-visible failure is a
// ServiceError carrying a stable code and an HTTP status; anything else is
// treated as an internal fault and reported without detail.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure category.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is a caller-visible failure.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches service errors by code so callers can use errors.Is against the
// constructors' zero-detail forms.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports malformed or missing input. Field-level detail is added
// via WithDetails(field, reason).
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Conflict reports a uniqueness violation such as a duplicate email.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Unauthorized reports missing or bad credentials. The message must not
// distinguish unknown identities from bad passwords.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// InvalidToken reports an unusable bearer token.
func InvalidToken(err error) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: "invalid or expired token", HTTPStatus: http.StatusUnauthorized, Err: err}
}

// Forbidden reports a valid identity with insufficient role.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NotFound reports an unknown entity identifier.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InvalidState reports an illegal state transition, e.g. approving an already
// resolved transaction.
func InvalidState(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidState, Message: message, HTTPStatus: http.StatusConflict}
}

// RateLimitExceeded reports that the caller has run out of request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return (&ServiceError{
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}).WithDetails("limit", limit).WithDetails("window", window)
}

// Internal wraps an unexpected fault. The wrapped error is logged but never
// serialized to non-privileged callers.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
