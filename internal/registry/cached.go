package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"prosreg/internal/platform/cache"
)

// CachedClient decorates a Client with TTL caching. Only successful lookups
// are cached; misses and failures always hit the upstream so a late
// registration becomes visible immediately.
type CachedClient struct {
	upstream Client
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCachedClient(upstream Client, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedClient{upstream: upstream, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedClient) Lookup(ctx context.Context, registrationNumber string) (*CompanyRecord, error) {
	key := "registry:" + registrationNumber

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "registry cache read failed", "error", err)
	} else if ok {
		var record CompanyRecord
		if err := json.Unmarshal(raw, &record); err == nil {
			return &record, nil
		}
		c.logger.WarnContext(ctx, "registry cache entry corrupt", "key", key)
	}

	record, err := c.upstream.Lookup(ctx, registrationNumber)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(record); err == nil {
		if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "registry cache write failed", "error", err)
		}
	}
	return record, nil
}
