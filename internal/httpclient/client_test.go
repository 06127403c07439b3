package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const secretToken = "SECRETKEY123"

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	previous := otel.GetTracerProvider()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func assertNoSecret(t *testing.T, spans []sdktrace.ReadOnlySpan) {
	t.Helper()
	for _, span := range spans {
		assert.NotContains(t, span.Name(), secretToken)
		assert.NotContains(t, span.Status().Description, secretToken)
		for _, kv := range span.Attributes() {
			assert.NotContains(t, kv.Value.Emit(), secretToken, "attribute %s", kv.Key)
		}
		for _, ev := range span.Events() {
			for _, kv := range ev.Attributes {
				assert.NotContains(t, kv.Value.Emit(), secretToken, "event attribute %s", kv.Key)
			}
		}
	}
}

func TestTracedClient_SpanOmitsQueryString(t *testing.T) {
	recorder := setupRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, secretToken, r.URL.Query().Get("api_token"))
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	client := NewTracedHTTPClient(nil)
	resp, err := client.Get(srv.URL + "/api/eod/AAPL.US?api_token=" + secretToken + "&fmt=json")
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assertNoSecret(t, spans)

	span := spans[0]
	assert.Equal(t, "GET /api/eod/AAPL.US", span.Name())
	attrs := attrMap(span.Attributes())
	assert.Equal(t, "GET", attrs["http.request.method"])
	assert.Equal(t, "/api/eod/AAPL.US", attrs["url.path"])
	assert.Equal(t, "200", attrs["http.response.status_code"])
	assert.NotContains(t, attrs, "url.full")
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracedClient_ErrorStatusOmitsSecret(t *testing.T) {
	recorder := setupRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewTracedHTTPClient(nil)
	resp, err := client.Get(srv.URL + "/api/fundamentals/AAPL.US?api_token=" + secretToken)
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assertNoSecret(t, spans)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "401", attrMap(spans[0].Attributes())["http.response.status_code"])
}

func TestTracedClient_TransportErrorOmitsSecret(t *testing.T) {
	recorder := setupRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewTracedHTTPClient(nil)
	_, err := client.Get(url + "/api/eod/AAPL.US?api_token=" + secretToken)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assertNoSecret(t, spans)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.False(t, strings.Contains(spans[0].Status().Description, "dial"))
}
