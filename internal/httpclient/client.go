package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans recorded for upstream calls
const TracerName = "github.com/ternarybob/eodhd-mcp/internal/httpclient"

// Pool limits for the EODHD API: a handful of keep-alive connections is enough
// because requests are serialized by the rate limiter.
const (
	MaxIdleConns        = 10
	MaxIdleConnsPerHost = 5
	MaxConnsPerHost     = 10
	IdleConnTimeout     = 90 * time.Second
)

// NewPooledTransport creates the connection-pooled transport used for upstream calls
func NewPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        MaxIdleConns,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		MaxConnsPerHost:     MaxConnsPerHost,
		IdleConnTimeout:     IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// NewDefaultHTTPClient creates a traced, pooled HTTP client.
// The client carries no overall timeout; callers bound each attempt with a context deadline.
func NewDefaultHTTPClient() *http.Client {
	return NewTracedHTTPClient(NewPooledTransport())
}

// NewTracedHTTPClient wraps base so every round trip records a client span.
// Spans carry method, host, path and status only. The query string holds the
// api_token and is never recorded.
func NewTracedHTTPClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &tracingTransport{base: base}}
}

type tracingTransport struct {
	base http.RoundTripper
}

func (t *tracingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	// Resolved per request so a provider installed after construction is honoured
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("server.address", r.URL.Hostname()),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	resp, err := t.base.RoundTrip(r.WithContext(ctx))
	if err != nil {
		// err text may embed the request URL
		span.SetStatus(codes.Error, "transport error")
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}
