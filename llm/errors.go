package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies provider failures.
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeContentFilter     ErrorType = "content_filter"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
	ErrorTypeEmptyResponse     ErrorType = "empty_response"
	ErrorTypeJSONParsingError  ErrorType = "json_parsing_error"
)

// LLMError is returned by provider clients for every failed call.
type LLMError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Provider   Provider  `json:"provider"`
	Model      string    `json:"model,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds
	Cause      error     `json:"-"`
}

func (e *LLMError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s/%s: %s (%s)", e.Provider, e.Model, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Type)
}

func (e *LLMError) Unwrap() error { return e.Cause }

// Retryable reports whether the call may succeed if repeated.
func (e *LLMError) Retryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	}
	return false
}

// NewLLMError creates a new LLM error
func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{Type: errorType, Message: message, Provider: provider}
}

// WrapError builds an LLMError around a transport or SDK error.
func WrapError(provider Provider, model string, status int, cause error) *LLMError {
	e := &LLMError{Provider: provider, Model: model, HTTPStatus: status, Cause: cause}
	if cause != nil {
		e.Message = cause.Error()
	}
	e.Type = ClassifyStatus(status)
	if e.Type == ErrorTypeUnknown && cause != nil {
		e.Type = classifyMessage(strings.ToLower(cause.Error()))
	}
	return e
}

// ClassifyStatus maps an HTTP status code onto an ErrorType.
func ClassifyStatus(status int) ErrorType {
	switch {
	case status == 0:
		return ErrorTypeUnknown
	case status == http.StatusBadRequest:
		return ErrorTypeInvalidRequest
	case status == http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case status == http.StatusForbidden:
		return ErrorTypePermission
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status >= 500:
		return ErrorTypeServerError
	}
	return ErrorTypeUnknown
}

func classifyMessage(msg string) ErrorType {
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "quota"):
		return ErrorTypeInsufficientQuota
	case strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context"):
		return ErrorTypeContextLength
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "no such host"):
		return ErrorTypeConnectionError
	}
	return ErrorTypeUnknown
}

// AsLLMError unwraps err looking for an *LLMError.
func AsLLMError(err error) (*LLMError, bool) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if llmErr, ok := AsLLMError(err); ok {
		return llmErr.Retryable()
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	llmErr, ok := AsLLMError(err)
	return ok && llmErr.Type == ErrorTypeRateLimit
}
