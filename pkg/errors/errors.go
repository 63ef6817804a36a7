// Package errors defines the structured error types used across the riskpulse
// service. Every error carries a stable machine-readable code, an HTTP status,
// and optional detail metadata so handlers can build the public error envelope
// without inspecting internals.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ================================================================================
// Error Codes
// ================================================================================

const (
	CodeValidation         = "validation_error"
	CodeAuthentication     = "authentication_error"
	CodeAuthorization      = "authorization_error"
	CodeUnsupportedHorizon = "unsupported_horizon"
	CodeExternalProvider   = "external_provider_error"
	CodeModelInference     = "model_inference_error"
	CodeRateLimitExceeded  = "rate_limit_exceeded"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeInternal           = "internal_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError is the structured application error. It satisfies the error
// interface and supports errors.Is/As chains through Unwrap.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]string
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithError attaches a cause to the error chain.
func (e *AppError) WithError(cause error) *AppError {
	e.cause = cause
	return e
}

// WithDetail adds a key/value detail surfaced in the error envelope.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with the given code, HTTP status, and message.
func New(code string, httpStatus int, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ================================================================================
// Constructors
// ================================================================================

// ErrValidation marks missing or malformed input. Never retried.
func ErrValidation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// ErrMissingField marks a missing required request field.
func ErrMissingField(field string) *AppError {
	return ErrValidation(fmt.Sprintf("missing required field: %s", field)).
		WithDetail("field", field)
}

// ErrAuthentication marks a failed caller authentication. Never retried.
func ErrAuthentication(message string) *AppError {
	return New(CodeAuthentication, http.StatusUnauthorized, message)
}

// ErrAuthorization marks an authenticated caller lacking permission.
func ErrAuthorization(message string) *AppError {
	return New(CodeAuthorization, http.StatusForbidden, message)
}

// ErrUnsupportedHorizon marks an explicit model override whose declared
// applicability range excludes the requested horizon.
func ErrUnsupportedHorizon(modelID string, horizon int) *AppError {
	return New(CodeUnsupportedHorizon, http.StatusUnprocessableEntity,
		fmt.Sprintf("model %s does not support horizon %d months", modelID, horizon)).
		WithDetail("model_id", modelID).
		WithDetail("horizon_months", fmt.Sprintf("%d", horizon))
}

// ErrExternalProvider marks a provider-call failure. Absorbed by the
// aggregator; degrades data quality instead of failing the request.
func ErrExternalProvider(providerID string, cause error) *AppError {
	return New(CodeExternalProvider, http.StatusBadGateway,
		fmt.Sprintf("provider %s call failed", providerID)).
		WithDetail("provider_id", providerID).
		WithError(cause)
}

// ErrProviderUnavailable marks a short-circuited call against an open breaker.
func ErrProviderUnavailable(providerID string) *AppError {
	return New(CodeExternalProvider, http.StatusServiceUnavailable,
		fmt.Sprintf("provider %s unavailable: circuit open", providerID)).
		WithDetail("provider_id", providerID).
		WithDetail("circuit", "open")
}

// ErrModelInference marks a scoring failure for one model invocation.
func ErrModelInference(modelID string, cause error) *AppError {
	return New(CodeModelInference, http.StatusInternalServerError,
		fmt.Sprintf("inference failed for model %s", modelID)).
		WithDetail("model_id", modelID).
		WithError(cause)
}

// ErrRateLimited marks an exceeded caller rate limit with a retry hint.
func ErrRateLimited(retryAfterSeconds int) *AppError {
	return New(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"rate limit exceeded, please retry later").
		WithDetail("retry_after_seconds", fmt.Sprintf("%d", retryAfterSeconds))
}

// ErrNotFound marks a missing resource.
func ErrNotFound(resource, id string) *AppError {
	return New(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("%s not found: %s", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// ErrConflict marks a state-machine violation, e.g. mutating a terminal assessment.
func ErrConflict(message string) *AppError {
	return New(CodeConflict, http.StatusConflict, message)
}

// ErrInternal marks an unexpected failure. The public envelope carries a
// generic message; the cause stays in logs only.
func ErrInternal(cause error) *AppError {
	return New(CodeInternal, http.StatusInternalServerError,
		"an unexpected error occurred").
		WithError(cause)
}

// ================================================================================
// Predicates
// ================================================================================

// AsAppError unwraps err to an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsUnsupportedHorizon reports whether err is an out-of-range model override.
func IsUnsupportedHorizon(err error) bool { return hasCode(err, CodeUnsupportedHorizon) }

// IsExternalProvider reports whether err is a provider failure.
func IsExternalProvider(err error) bool { return hasCode(err, CodeExternalProvider) }

// IsModelInference reports whether err is an inference failure.
func IsModelInference(err error) bool { return hasCode(err, CodeModelInference) }

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool { return hasCode(err, CodeRateLimitExceeded) }

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsRetryable reports whether the resilience envelope may retry err.
// Validation, auth, and unsupported-horizon errors are never retried.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		// Unknown errors from transports are treated as transient.
		return true
	}
	switch appErr.Code {
	case CodeValidation, CodeAuthentication, CodeAuthorization,
		CodeUnsupportedHorizon, CodeNotFound, CodeConflict:
		return false
	}
	return true
}

// ShouldLog reports whether err warrants an error-level log entry.
// Client errors (4xx) stay at debug except rate limiting.
func ShouldLog(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus >= 500 || appErr.HTTPStatus == http.StatusTooManyRequests
	}
	return true
}
