// Package cache provides Redis caching decorators for the technicals read path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/transport/http/dto"
)

// TechnicalsSource is the usecase surface decorated by CachingTechnicals.
type TechnicalsSource interface {
	GetTechnicals(ctx context.Context, ticker string, forceRefresh bool) (entity.Result, bool)
	FetchWithStatus(ctx context.Context, tickers []string, forceRefresh bool) []entity.Result
}

// CachingTechnicals decorates a TechnicalsSource with Redis caching of single-ticker reads.
// Unavailable results are never cached.
type CachingTechnicals struct {
	inner     TechnicalsSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingTechnicals decorates a TechnicalsSource with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "technicals".
func NewCachingTechnicals(rdb *redis.Client, ttl time.Duration, inner TechnicalsSource, namespace string) *CachingTechnicals {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "technicals"
	}
	return &CachingTechnicals{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// GetTechnicals checks Redis first, then falls back to the inner source.
// forceRefresh bypasses the read and overwrites the entry.
func (c *CachingTechnicals) GetTechnicals(ctx context.Context, ticker string, forceRefresh bool) (entity.Result, bool) {
	if c.rdb == nil {
		return c.inner.GetTechnicals(ctx, ticker, forceRefresh)
	}

	key := c.cacheKey(ticker)

	if !forceRefresh {
		if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var body dto.TechnicalsResponse
			if err := json.Unmarshal(b, &body); err == nil {
				return entity.Result{Ticker: body.Ticker, Status: entity.StatusCached, Rows: body.EntityRows()}, true
			}
			// Delete corrupted cache entry
			_ = c.rdb.Del(ctx, key).Err()
		}
	}

	res, ok := c.inner.GetTechnicals(ctx, ticker, forceRefresh)
	if !ok || res.Status == entity.StatusUnavailable {
		return res, ok
	}

	// Best effort
	if b, err := json.Marshal(dto.NewTechnicalsResponse(res)); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Debug("redis set failed", "key", key, "error", err)
		}
	}
	return res, ok
}

// FetchWithStatus delegates to the inner source and invalidates entries of
// every ticker that was freshly fetched.
func (c *CachingTechnicals) FetchWithStatus(ctx context.Context, tickers []string, forceRefresh bool) []entity.Result {
	results := c.inner.FetchWithStatus(ctx, tickers, forceRefresh)
	if c.rdb == nil {
		return results
	}

	var keys []string
	for _, r := range results {
		if r.Status == entity.StatusFetched {
			keys = append(keys, c.cacheKey(r.Ticker))
		}
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("failed to invalidate technicals cache", "keys", len(keys), "error", err)
		}
	}
	return results
}

// cacheKey generates a cache key for a ticker.
func (c *CachingTechnicals) cacheKey(ticker string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(ticker))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
