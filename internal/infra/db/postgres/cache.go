package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/infra/metrics"
	red "ai-image-studio/internal/infra/redis"
)

// readThrough serves key from Redis or loads it and fills the cache. Errors
// from load are returned as is and never cached. A broken cache degrades to
// direct reads.
func readThrough[T any](ctx context.Context, cache red.RedisClient, ttl time.Duration, log *zerolog.Logger,
	name, key string, load func() (T, error)) (T, error) {
	val, err := cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if json.Unmarshal([]byte(val), &v) == nil {
			metrics.IncCacheRequest(name, "hit")
			return v, nil
		}
	case !errors.Is(err, red.ErrCacheMiss):
		metrics.IncCacheRequest(name, "error")
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest(name, "miss")
	v, err := load()
	if err != nil {
		return v, err
	}
	writeCache(ctx, cache, ttl, log, key, v)
	return v, nil
}

func writeCache(ctx context.Context, cache red.RedisClient, ttl time.Duration, log *zerolog.Logger, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := cache.Set(ctx, key, b, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func invalidate(ctx context.Context, cache red.RedisClient, log *zerolog.Logger, keys ...string) {
	if err := cache.Del(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
