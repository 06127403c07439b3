package badger

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// cachedResponse is the persisted form of an eodhd.Response
type cachedResponse struct {
	Key       string
	Op        string
	Empty     bool
	Body      []byte
	ExpiresAt time.Time
}

// ResponseCache implements interfaces.ResponseCache over badgerhold
type ResponseCache struct {
	db     *BadgerDB
	logger arbor.ILogger
	ttl    time.Duration
	now    func() time.Time
}

var _ interfaces.ResponseCache = (*ResponseCache)(nil)

// NewResponseCache creates a cache whose entries live for ttl
func NewResponseCache(db *BadgerDB, logger arbor.ILogger, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		db:     db,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewInMemoryResponseCache opens an in-memory store and wraps it in a ResponseCache
func NewInMemoryResponseCache(logger arbor.ILogger, ttl time.Duration) (*ResponseCache, error) {
	db, err := NewBadgerDB(logger, "")
	if err != nil {
		return nil, err
	}
	return NewResponseCache(db, logger, ttl), nil
}

// Get returns a fresh cached response
func (c *ResponseCache) Get(ctx context.Context, key string) (*eodhd.Response, bool) {
	var entry cachedResponse
	err := c.db.Store().Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read cached response")
		return nil, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		if err := c.db.Store().Delete(key, cachedResponse{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("Failed to evict expired response")
		}
		return nil, false
	}

	return &eodhd.Response{
		Op:    eodhd.Operation(entry.Op),
		Empty: entry.Empty,
		Body:  entry.Body,
	}, true
}

// Set stores a response; nil responses and a non-positive TTL are ignored
func (c *ResponseCache) Set(ctx context.Context, key string, resp *eodhd.Response) error {
	if resp == nil || c.ttl <= 0 {
		return nil
	}

	entry := cachedResponse{
		Key:       key,
		Op:        string(resp.Op),
		Empty:     resp.Empty,
		Body:      resp.Body,
		ExpiresAt: c.now().Add(c.ttl),
	}
	if err := c.db.Store().Upsert(key, &entry); err != nil {
		return err
	}
	return nil
}

// Purge deletes every expired entry and returns how many were removed
func (c *ResponseCache) Purge(ctx context.Context) (int, error) {
	now := c.now()
	var expired []string
	err := c.db.Store().ForEach(nil, func(entry *cachedResponse) error {
		if !now.Before(entry.ExpiresAt) {
			expired = append(expired, entry.Key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range expired {
		if err := c.db.Store().Delete(key, cachedResponse{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return 0, err
		}
	}
	return len(expired), nil
}

// Close closes the underlying store
func (c *ResponseCache) Close() error {
	return c.db.Close()
}
