package eodhd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindInvalidAPIKey       ErrorKind = "invalid_api_key"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindBadRequest          ErrorKind = "bad_request"
	KindNetworkError        ErrorKind = "network_error"
	KindMalformedResponse   ErrorKind = "malformed_response"
)

// Retryable reports whether a later attempt may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUpstreamUnavailable, KindNetworkError:
		return true
	default:
		return false
	}
}

// APIError represents an error from the EODHD API or the request pipeline.
// StatusCode is zero when no HTTP response was received.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("EODHD %s: %s (endpoint: %s)", e.Kind, e.Message, e.Endpoint)
	}
	return fmt.Sprintf("EODHD %s: %s (status: %d, endpoint: %s)", e.Kind, e.Message, e.StatusCode, e.Endpoint)
}

// Retryable reports whether the error kind may succeed on retry.
func (e *APIError) Retryable() bool {
	return e.Kind.Retryable()
}

func newError(kind ErrorKind, status int, message, endpoint string) *APIError {
	return &APIError{
		Kind:       kind,
		StatusCode: status,
		Message:    message,
		Endpoint:   endpoint,
	}
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// redact removes every occurrence of secret from msg.
func redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "[REDACTED]")
}
