package eodhd

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/httpclient"
)

// DefaultBaseURL is the base URL for the EODHD API.
const DefaultBaseURL = "https://eodhd.com/api"

// Response is the result of a successful pipeline run.
// Empty is true for "no data" outcomes (HTTP 404 or an empty payload); Body is nil then.
type Response struct {
	Op    Operation
	Empty bool
	Body  json.RawMessage
}

// Client is an EODHD API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	logger     arbor.ILogger
	limiter    *RateLimiter
	policy     RetryPolicy
	retryOpts  []RetrierOption

	executor *Executor
	retrier  *Retrier
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimiter shares a process-wide rate limiter.
func WithRateLimiter(limiter *RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithRetrierOptions passes options through to the retrier (sleeper, observer).
func WithRetrierOptions(opts ...RetrierOption) ClientOption {
	return func(c *Client) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpclient.NewDefaultHTTPClient(),
		timeout:    DefaultTimeout,
		policy:     DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = NewRateLimiter(c.policy.BaseDelay)
	}

	c.executor = NewExecutor(c.httpClient, c.timeout, c.apiKey)
	retryOpts := c.retryOpts
	if c.logger != nil {
		retryOpts = append([]RetrierOption{WithRetryLogger(c.logger)}, retryOpts...)
	}
	c.retrier = NewRetrier(c.policy, retryOpts...)

	return c
}

// Fetch runs one request through the pipeline: rate limit, then the attempt loop of
// execute and classify. Errors are always *APIError.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	path := req.Path()

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, newError(KindNetworkError, 0, redact(err.Error(), c.apiKey), path)
	}

	params := req.Params()
	params["api_token"] = c.apiKey
	params["fmt"] = "json"
	shape := req.Op.Shape()

	result, err := c.retrier.Do(ctx, func(ctx context.Context, attempt int) Classification {
		// Log request path only; the query string carries the API token.
		if c.logger != nil {
			c.logger.Debug().
				Str("path", path).
				Int("attempt", attempt).
				Msg("EODHD API request")
		}

		raw, err := c.executor.Execute(ctx, http.MethodGet, c.baseURL+path, params)
		if err != nil {
			apiErr, ok := AsAPIError(err)
			if !ok {
				apiErr = newError(KindNetworkError, 0, redact(err.Error(), c.apiKey), path)
			}
			if apiErr.Retryable() {
				return retryable(apiErr)
			}
			return fatal(apiErr)
		}
		return Classify(raw, shape, path)
	})
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && c.logger != nil {
			c.logger.Warn().
				Str("path", path).
				Str("kind", string(apiErr.Kind)).
				Int("status", apiErr.StatusCode).
				Msg("EODHD request failed")
		}
		return nil, err
	}

	return &Response{
		Op:    req.Op,
		Empty: result.Outcome == OutcomeEmpty,
		Body:  result.Body,
	}, nil
}

// GetEOD retrieves end-of-day price data for a symbol.
// Symbol format: TICKER (exchange via WithExchange) or TICKER.EXCHANGE (e.g., "AAPL.US").
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) (*Response, error) {
	req := NewRequest(OpPrice, opts...)
	req.Symbol = symbol
	return c.Fetch(ctx, req)
}

// GetEarningsCalendar retrieves the earnings calendar, optionally for one symbol.
func (c *Client) GetEarningsCalendar(ctx context.Context, symbol string, opts ...QueryOption) (*Response, error) {
	req := NewRequest(OpEarnings, opts...)
	req.Symbol = symbol
	return c.Fetch(ctx, req)
}

// GetFundamentals retrieves fundamental data for a symbol.
func (c *Client) GetFundamentals(ctx context.Context, symbol string, opts ...QueryOption) (*Response, error) {
	req := NewRequest(OpFundamentals, opts...)
	req.Symbol = symbol
	return c.Fetch(ctx, req)
}

// GetIndexComponents retrieves the constituents of an index (e.g., "GSPC.INDX").
func (c *Client) GetIndexComponents(ctx context.Context, indexCode string) (*Response, error) {
	req := NewRequest(OpIndexComponents)
	req.IndexCode = indexCode
	return c.Fetch(ctx, req)
}
