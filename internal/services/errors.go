package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProviderError is a non-2xx reply from an LLM provider. Its message always
// carries the phrase the HTTP layer classifies on.
type ProviderError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	var reason string
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		reason = "authentication failed: invalid API key"
	case e.StatusCode == http.StatusTooManyRequests && mentionsQuota(e.Detail):
		reason = "quota exceeded"
	case e.StatusCode == http.StatusTooManyRequests:
		reason = "rate limit exceeded"
	case e.StatusCode == http.StatusPaymentRequired:
		reason = "quota or billing issue"
	case e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout:
		reason = "upstream timeout"
	default:
		reason = "request failed"
	}
	msg := fmt.Sprintf("%s API %s (status %d)", e.Provider, reason, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func mentionsQuota(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "billing")
}

// Error classes understood by the HTTP layer.
const (
	ErrorClassAuth      = "AUTH_ERROR"
	ErrorClassRateLimit = "RATE_LIMITED"
	ErrorClassTimeout   = "TIMEOUT"
	ErrorClassQuota     = "QUOTA_EXCEEDED"
	ErrorClassInternal  = "GENERATION_FAILED"
)

// ClassifiedError is the user-facing form of a pipeline failure.
type ClassifiedError struct {
	Class      string
	StatusCode int
	Message    string
}

// ClassifyError maps a pipeline failure to a status code by matching
// well-known phrases in its message.
func ClassifyError(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Class: ErrorClassInternal, StatusCode: http.StatusInternalServerError, Message: "Failed to generate presentation"}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ClassifiedError{Class: "VALIDATION_ERROR", StatusCode: http.StatusBadRequest, Message: ve.Message}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassifiedError{Class: ErrorClassTimeout, StatusCode: http.StatusRequestTimeout, Message: "Request timeout. Please try again."}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "authentication"):
		return ClassifiedError{Class: ErrorClassAuth, StatusCode: http.StatusUnauthorized, Message: "Invalid API key or authentication failed"}
	case strings.Contains(msg, "rate limit"):
		return ClassifiedError{Class: ErrorClassRateLimit, StatusCode: http.StatusTooManyRequests, Message: "API rate limit exceeded. Please try again in a few minutes."}
	case strings.Contains(msg, "timeout"):
		return ClassifiedError{Class: ErrorClassTimeout, StatusCode: http.StatusRequestTimeout, Message: "Request timeout. Please try again."}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "billing"):
		return ClassifiedError{Class: ErrorClassQuota, StatusCode: http.StatusPaymentRequired, Message: "API quota exceeded or billing issue"}
	default:
		return ClassifiedError{Class: ErrorClassInternal, StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
}
