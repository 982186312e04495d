package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors shared between adapters and the orchestrator
var (
	// ErrEmptyResponse is returned by adapters when a provider answers with a
	// success status but no content. Callers depend on content being present.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrCacheMiss is returned by cache stores when a key is absent or expired
	ErrCacheMiss = errors.New("cache miss")
)

// Error categories carried in the structured error payload
const (
	CategoryConfiguration = "configuration_error"
	CategoryProvider      = "provider_error"
	CategoryValidation    = "validation_error"
	CategoryRateLimit     = "rate_limit_exceeded"
	CategoryInternal      = "internal_error"
)

// Provider error codes assigned during classification
const (
	CodeAuth          = "auth"
	CodeRateLimited   = "rate_limited"
	CodeTimeout       = "timeout"
	CodeUpstream      = "upstream"
	CodeEmptyResponse = "empty_response"
	CodeBadRequest    = "bad_request"
	CodeInvalidOutput = "invalid_output"
	CodeUnknown       = "unknown"
)

// ErrorPayload is the externally visible error shape. It never carries
// provider credentials or stack traces.
type ErrorPayload struct {
	Category  string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfigurationError indicates that no provider is credentialed
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// Payload formats the error for external callers
func (e *ConfigurationError) Payload() ErrorPayload {
	return ErrorPayload{Category: CategoryConfiguration, Message: e.Message, Timestamp: time.Now().UTC()}
}

// ProviderError indicates that a credentialed provider's call failed
type ProviderError struct {
	Provider Provider
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed (%s): %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Payload formats the error for external callers
func (e *ProviderError) Payload() ErrorPayload {
	return ErrorPayload{
		Category:  CategoryProvider,
		Message:   fmt.Sprintf("%s: %s", e.Provider, e.Message),
		Timestamp: time.Now().UTC(),
	}
}

// ValidationError indicates a malformed normalized request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Message)
}

// Payload formats the error for external callers
func (e *ValidationError) Payload() ErrorPayload {
	return ErrorPayload{
		Category:  CategoryValidation,
		Message:   fmt.Sprintf("field %q: %s", e.Field, e.Message),
		Timestamp: time.Now().UTC(),
	}
}

// RateLimitError indicates the caller exceeded an admission window
type RateLimitError struct {
	Limit   int
	Window  time.Duration
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// Payload formats the error for external callers
func (e *RateLimitError) Payload() ErrorPayload {
	return ErrorPayload{
		Category:  CategoryRateLimit,
		Message:   fmt.Sprintf("limit of %d requests per %s exceeded", e.Limit, e.Window),
		Timestamp: time.Now().UTC(),
	}
}

// InternalError is the fallback for anything unclassified
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string { return e.Message }

func (e *InternalError) Unwrap() error { return e.Err }

// Payload formats the error for external callers
func (e *InternalError) Payload() ErrorPayload {
	return ErrorPayload{Category: CategoryInternal, Message: e.Message, Timestamp: time.Now().UTC()}
}

// PayloadFor maps any error to its structured payload. Unclassified errors
// degrade to a generic internal-error payload so raw messages never leak.
func PayloadFor(err error) ErrorPayload {
	type payloader interface {
		Payload() ErrorPayload
	}
	var p payloader
	if errors.As(err, &p) {
		return p.Payload()
	}
	return ErrorPayload{
		Category:  CategoryInternal,
		Message:   "internal error",
		Timestamp: time.Now().UTC(),
	}
}

// Classify maps a raw adapter failure into the error taxonomy. Adapters never
// classify their own errors; this is the single point where provider failures
// are assigned a code before leaving the module.
func Classify(provider Provider, err error) error {
	if err == nil {
		return nil
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, ErrEmptyResponse):
		code = CodeEmptyResponse
	case errors.Is(err, context.DeadlineExceeded) || containsAny(err, "timeout", "deadline exceeded"):
		code = CodeTimeout
	case containsAny(err, "429", "rate limit", "quota"):
		code = CodeRateLimited
	case containsAny(err, "401", "403", "unauthorized", "forbidden", "invalid api key", "api key"):
		code = CodeAuth
	case containsAny(err, "500", "502", "503", "504", "connection refused", "connection reset"):
		code = CodeUpstream
	case containsAny(err, "400", "bad request", "invalid request"):
		code = CodeBadRequest
	}

	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  err.Error(),
		Err:      err,
	}
}

// containsAny reports whether the error message contains any of the substrings
func containsAny(err error, substrs ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range substrs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
