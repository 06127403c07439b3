package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ResponseCache, *time.Time) {
	t.Helper()
	cache, err := NewInMemoryResponseCache(arbor.NewLogger(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestResponseCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	resp := &eodhd.Response{Op: eodhd.OpPrice, Body: json.RawMessage(`[{"date":"2024-01-02"}]`)}
	require.NoError(t, cache.Set(ctx, "price|AAPL.US", resp))

	got, ok := cache.Get(ctx, "price|AAPL.US")
	require.True(t, ok)
	assert.Equal(t, eodhd.OpPrice, got.Op)
	assert.False(t, got.Empty)
	assert.JSONEq(t, string(resp.Body), string(got.Body))

	_, ok = cache.Get(ctx, "price|MSFT.US")
	assert.False(t, ok)
}

func TestResponseCache_EmptyResponses(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "index|GSPC", &eodhd.Response{Op: eodhd.OpIndexComponents, Empty: true}))

	got, ok := cache.Get(ctx, "index|GSPC")
	require.True(t, ok)
	assert.True(t, got.Empty)
	assert.Empty(t, got.Body)
}

func TestResponseCache_Expiry(t *testing.T) {
	cache, now := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &eodhd.Response{Op: eodhd.OpFundamentals, Body: json.RawMessage(`{}`)}))
	require.NoError(t, cache.Set(ctx, "b", &eodhd.Response{Op: eodhd.OpFundamentals, Body: json.RawMessage(`{}`)}))

	*now = now.Add(59 * time.Second)
	_, ok := cache.Get(ctx, "a")
	assert.True(t, ok, "entry is fresh before the TTL elapses")

	*now = now.Add(time.Second)
	_, ok = cache.Get(ctx, "a")
	assert.False(t, ok, "entry expires exactly at the TTL")

	removed, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "only b remained to purge")
}

func TestResponseCache_DisabledTTL(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &eodhd.Response{Op: eodhd.OpPrice, Body: json.RawMessage(`[]`)}))
	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)

	assert.NoError(t, cache.Set(ctx, "nil", nil))
}
