package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// resultCacheTTL is the fixed TTL for cached search result lists.
const resultCacheTTL = 300 * time.Second

// cacheKey computes the MD5 digest of the parameters that determine a
// search's result list, so identical queries against an unchanged store
// hit the same entry.
func cacheKey(query, language, intent, phase string, k int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s|%d", query, language, intent, phase, k)))
	return "search:" + hex.EncodeToString(sum[:])
}

// redisCache wraps a *redis.Client with sonic-based serialization. Its
// absence (a nil client, or any error talking to Redis) degrades silently
// to an always-miss cache rather than failing the search.
type redisCache struct {
	client *redis.Client
}

// newRedisCache wraps client. A nil client is valid and yields a cache that
// always misses.
func newRedisCache(client *redis.Client) *redisCache {
	if client == nil {
		return nil
	}
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]Result, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("search cache unavailable on read", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var results []Result
	if err := sonic.Unmarshal(raw, &results); err != nil {
		slog.Warn("search cache entry corrupt, ignoring", slog.String("error", err.Error()))
		return nil, false
	}
	return results, true
}

func (c *redisCache) Set(ctx context.Context, key string, results []Result) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := sonic.Marshal(results)
	if err != nil {
		slog.Debug("search cache marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, key, raw, resultCacheTTL).Err(); err != nil {
		slog.Debug("search cache unavailable on write", slog.String("error", err.Error()))
	}
}
