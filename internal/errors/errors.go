package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes an application error. The string form doubles as the
// machine-readable "reason" returned to clients on validation failures.
type ErrorCode string

const (
	// ErrCodeInvalidAssertion indicates the identity-provider credential could
	// not be verified (bad signature, wrong audience, expired assertion).
	ErrCodeInvalidAssertion ErrorCode = "invalid_assertion"
	// ErrCodeEmailNotVerified indicates the provider reports the email as unverified.
	ErrCodeEmailNotVerified ErrorCode = "email_not_verified"
	// ErrCodeDomainNotAllowed indicates the email domain is outside the allow-list.
	ErrCodeDomainNotAllowed ErrorCode = "domain_not_allowed"
	// ErrCodeAccessDenied indicates a blacklisted user or a role/allow-list mismatch.
	ErrCodeAccessDenied ErrorCode = "access_denied"
	// ErrCodeTokenExpired indicates a session or app token past its expiry.
	ErrCodeTokenExpired ErrorCode = "token_expired"
	// ErrCodeInvalidToken indicates a token that fails signature or shape checks.
	ErrCodeInvalidToken ErrorCode = "invalid_token"
	// ErrCodeSessionNotFound indicates no session record backs the presented token.
	ErrCodeSessionNotFound ErrorCode = "session_not_found"
	// ErrCodeSessionRevoked indicates the session was revoked by an admin or sweep.
	ErrCodeSessionRevoked ErrorCode = "session_revoked"
	// ErrCodeIdentityRevoked indicates the identity provider no longer vouches
	// for the user (periodic revalidation failed with a confirmed-bad identity).
	ErrCodeIdentityRevoked ErrorCode = "identity_revoked"
	// ErrCodeRateLimited indicates the per-client request ceiling was exceeded.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeServiceUnavailable indicates a backing store or the identity
	// provider was unreachable within the request deadline.
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"
	// ErrCodeConfiguration indicates missing or weak startup configuration.
	// Fatal at the service boundary.
	ErrCodeConfiguration ErrorCode = "configuration_error"
	// ErrCodeValidation indicates invalid request input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError is a structured application error with a code, message, and
// optional cause. It supports errors.Is / errors.As via Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input field for validation errors (optional).
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error, preserving the cause chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// AccessDenied creates an access-denied error.
func AccessDenied(message string) *AppError {
	return &AppError{Code: ErrCodeAccessDenied, Message: message}
}

// Configuration creates a configuration error.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// isCode checks whether err carries a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsAccessDenied checks if an error is an AccessDenied error.
func IsAccessDenied(err error) bool { return isCode(err, ErrCodeAccessDenied) }

// IsTokenExpired checks if an error is a TokenExpired error.
func IsTokenExpired(err error) bool { return isCode(err, ErrCodeTokenExpired) }

// IsInvalidToken checks if an error is an InvalidToken error.
func IsInvalidToken(err error) bool { return isCode(err, ErrCodeInvalidToken) }

// IsSessionNotFound checks if an error is a SessionNotFound error.
func IsSessionNotFound(err error) bool { return isCode(err, ErrCodeSessionNotFound) }

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool { return isCode(err, ErrCodeRateLimited) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsConfiguration checks if an error is a Configuration error.
func IsConfiguration(err error) bool { return isCode(err, ErrCodeConfiguration) }

// GetCode returns the ErrorCode from an error, or ErrCodeInternal when the
// error is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error code to the HTTP status the boundary should return.
// Configuration errors deliberately map to 500: detail stays server-side.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidAssertion, ErrCodeTokenExpired, ErrCodeInvalidToken,
		ErrCodeSessionNotFound, ErrCodeSessionRevoked, ErrCodeIdentityRevoked:
		return http.StatusUnauthorized
	case ErrCodeEmailNotVerified, ErrCodeDomainNotAllowed, ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConfiguration, ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
