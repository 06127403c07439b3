// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// ResponseCache stores successful pipeline responses keyed by eodhd.Request.Key.
// Only successful outcomes (data or empty) are ever stored; errors are not cached.
type ResponseCache interface {
	// Get returns a cached response and true when a fresh entry exists.
	Get(ctx context.Context, key string) (*eodhd.Response, bool)

	// Set stores a response until the cache TTL elapses.
	Set(ctx context.Context, key string, resp *eodhd.Response) error

	// Close releases the underlying store.
	Close() error
}

// MarketDataFetcher runs one request through the EODHD pipeline.
// Implemented by *eodhd.Client.
type MarketDataFetcher interface {
	Fetch(ctx context.Context, req eodhd.Request) (*eodhd.Response, error)
}
