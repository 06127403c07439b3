package eodhd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Outcome is the result category of one attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// Classification is the classified result of one attempt.
// Body is set for OutcomeSuccess; Err is set for OutcomeRetryable and OutcomeFatal.
type Classification struct {
	Outcome Outcome
	Body    json.RawMessage
	Err     *APIError
}

// Done reports whether the retry loop should stop on this classification.
func (c Classification) Done() bool {
	return c.Outcome != OutcomeRetryable
}

func success(body []byte) Classification {
	return Classification{Outcome: OutcomeSuccess, Body: json.RawMessage(body)}
}

func empty() Classification {
	return Classification{Outcome: OutcomeEmpty}
}

func retryable(err *APIError) Classification {
	return Classification{Outcome: OutcomeRetryable, Err: err}
}

func fatal(err *APIError) Classification {
	return Classification{Outcome: OutcomeFatal, Err: err}
}

// Classify maps a raw response to an outcome. The body is checked against the shape
// expected for the operation; it is not decoded further here.
func Classify(raw *RawResponse, shape Shape, endpoint string) Classification {
	status := raw.StatusCode

	switch {
	case status == http.StatusUnauthorized:
		return fatal(newError(KindInvalidAPIKey, status, "invalid API key", endpoint))
	case status == http.StatusNotFound:
		return empty()
	case status == http.StatusTooManyRequests:
		return retryable(newError(KindRateLimited, status, "API rate limit exceeded", endpoint))
	case status >= 500 && status <= 599:
		return retryable(newError(KindUpstreamUnavailable, status, fmt.Sprintf("upstream returned %d", status), endpoint))
	case status >= 400 && status <= 499:
		return fatal(newError(KindBadRequest, status, fmt.Sprintf("upstream rejected request with %d", status), endpoint))
	case status < 200 || status > 299:
		return fatal(newError(KindBadRequest, status, fmt.Sprintf("unexpected status %d", status), endpoint))
	}

	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return empty()
	}
	if !json.Valid(body) {
		return fatal(newError(KindMalformedResponse, status, "response body is not valid JSON", endpoint))
	}

	switch body[0] {
	case '[':
		if shape == ShapeObject {
			return fatal(newError(KindMalformedResponse, status, "expected a JSON object, got an array", endpoint))
		}
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return fatal(newError(KindMalformedResponse, status, err.Error(), endpoint))
		}
		if len(items) == 0 {
			return empty()
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return fatal(newError(KindMalformedResponse, status, err.Error(), endpoint))
		}
		if len(fields) == 0 {
			return empty()
		}
	case 'n':
		// null
		return empty()
	default:
		return fatal(newError(KindMalformedResponse, status, "unexpected JSON scalar response", endpoint))
	}

	return success(body)
}
