package eodhd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		shape       Shape
		wantOutcome Outcome
		wantKind    ErrorKind
	}{
		{"ok array", 200, `[{"date":"2024-01-02"}]`, ShapeArrayOrObject, OutcomeSuccess, ""},
		{"ok object", 200, `{"General":{}}`, ShapeObject, OutcomeSuccess, ""},
		{"empty array", 200, `[]`, ShapeArrayOrObject, OutcomeEmpty, ""},
		{"empty object", 200, `{}`, ShapeObject, OutcomeEmpty, ""},
		{"null body", 200, `null`, ShapeObject, OutcomeEmpty, ""},
		{"zero length body", 200, ``, ShapeArrayOrObject, OutcomeEmpty, ""},
		{"unauthorized", 401, `{"error":"bad key"}`, ShapeObject, OutcomeFatal, KindInvalidAPIKey},
		{"not found", 404, `Ticker Not Found.`, ShapeArrayOrObject, OutcomeEmpty, ""},
		{"rate limited", 429, ``, ShapeArrayOrObject, OutcomeRetryable, KindRateLimited},
		{"server error", 500, ``, ShapeArrayOrObject, OutcomeRetryable, KindUpstreamUnavailable},
		{"bad gateway", 502, ``, ShapeArrayOrObject, OutcomeRetryable, KindUpstreamUnavailable},
		{"unavailable", 599, ``, ShapeArrayOrObject, OutcomeRetryable, KindUpstreamUnavailable},
		{"bad request", 400, ``, ShapeArrayOrObject, OutcomeFatal, KindBadRequest},
		{"forbidden", 403, ``, ShapeArrayOrObject, OutcomeFatal, KindBadRequest},
		{"redirect", 302, ``, ShapeArrayOrObject, OutcomeFatal, KindBadRequest},
		{"not json", 200, `<html>oops</html>`, ShapeArrayOrObject, OutcomeFatal, KindMalformedResponse},
		{"array for object", 200, `[1,2]`, ShapeObject, OutcomeFatal, KindMalformedResponse},
		{"scalar", 200, `"text"`, ShapeArrayOrObject, OutcomeFatal, KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&RawResponse{StatusCode: tt.status, Body: []byte(tt.body)}, tt.shape, "/eod/AAPL.US")
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			if tt.wantKind == "" {
				assert.Nil(t, got.Err)
				return
			}
			require.NotNil(t, got.Err)
			assert.Equal(t, tt.wantKind, got.Err.Kind)
			assert.Equal(t, tt.status, got.Err.StatusCode)
			assert.Equal(t, "/eod/AAPL.US", got.Err.Endpoint)
		})
	}
}

func TestClassify_SuccessKeepsBody(t *testing.T) {
	body := `[{"date":"2024-01-02","close":1}]`
	got := Classify(&RawResponse{StatusCode: 200, Body: []byte("  " + body + "\n")}, ShapeArrayOrObject, "")
	require.Equal(t, OutcomeSuccess, got.Outcome)
	assert.JSONEq(t, body, string(got.Body))
}

func TestErrorKind_Retryable(t *testing.T) {
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindUpstreamUnavailable.Retryable())
	assert.True(t, KindNetworkError.Retryable())
	assert.False(t, KindInvalidAPIKey.Retryable())
	assert.False(t, KindBadRequest.Retryable())
	assert.False(t, KindMalformedResponse.Retryable())
}
