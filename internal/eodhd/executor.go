package eodhd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default per-attempt HTTP timeout.
const DefaultTimeout = 30 * time.Second

// RawResponse is an unparsed HTTP response.
type RawResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Executor issues single outbound HTTP requests. It never interprets the response
// body and never fails on a non-2xx status.
type Executor struct {
	httpClient *http.Client
	timeout    time.Duration
	secret     string
}

// NewExecutor creates an executor. secret is scrubbed from every error message.
func NewExecutor(httpClient *http.Client, timeout time.Duration, secret string) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		httpClient: httpClient,
		timeout:    timeout,
		secret:     secret,
	}
}

// Execute performs one request. Failures to obtain a response (DNS, connection refused,
// TLS, timeout) are returned as *APIError with KindNetworkError.
func (e *Executor) Execute(ctx context.Context, method, rawURL string, params map[string]string) (*RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	endpoint := e.endpoint(rawURL)

	var body io.Reader
	target := rawURL
	switch method {
	case http.MethodPost:
		body = strings.NewReader(values.Encode())
	default:
		if len(values) > 0 {
			target = rawURL + "?" + values.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, newError(KindBadRequest, 0, e.scrub(fmt.Sprintf("failed to create request: %v", err)), endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindNetworkError, 0, e.describe(err), endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNetworkError, 0, e.scrub(fmt.Sprintf("failed to read response: %v", err)), endpoint)
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// describe converts a transport error into a message free of the request URL.
func (e *Executor) describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("request timed out after %s", e.timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Sprintf("request timed out after %s", e.timeout)
		}
		return e.scrub(fmt.Sprintf("request failed: %v", urlErr.Err))
	}
	return e.scrub(fmt.Sprintf("request failed: %v", err))
}

func (e *Executor) scrub(msg string) string {
	return redact(msg, e.secret)
}

// endpoint returns the URL path used to label errors and log lines.
func (e *Executor) endpoint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
