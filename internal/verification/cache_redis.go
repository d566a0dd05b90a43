package verification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"verifycert-backend/internal/shared/telemetry"
)

const cacheKeyPrefix = "verify:"

// RedisCache keeps positive verification results in Redis. Documents never
// change after creation, so entries only expire by TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	return &RedisCache{Client: client, TTL: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id string) (Result, bool) {
	raw, err := c.Client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.Warn("verify.cache_get_failed", map[string]any{"document_id": id, "error": err})
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil || !res.Valid {
		return Result{}, false
	}
	return res, true
}

func (c *RedisCache) Set(ctx context.Context, id string, r Result) {
	if !r.Valid {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, cacheKeyPrefix+id, raw, c.TTL).Err(); err != nil {
		telemetry.Warn("verify.cache_set_failed", map[string]any{"document_id": id, "error": err})
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
