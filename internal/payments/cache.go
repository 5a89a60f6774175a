package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statusCachePrefix = "payment_request:status:v1:"

// StatusCache holds status views of terminal requests. Terminal views never
// change; an entry leaves early only when its request is archived.
type StatusCache interface {
	Get(ctx context.Context, requestID string) (StatusView, bool)
	Put(ctx context.Context, view StatusView)
	Delete(ctx context.Context, requestID string)
}

// RedisStatusCache stores status views as JSON strings.
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStatusCache builds a StatusCache on client.
func NewRedisStatusCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStatusCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStatusCache{client: client, ttl: ttl, logger: logger}
}

// Get misses on any Redis failure; the store stays authoritative.
func (c *RedisStatusCache) Get(ctx context.Context, requestID string) (StatusView, bool) {
	raw, err := c.client.Get(ctx, statusCachePrefix+requestID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("status cache lookup failed", zap.String("request_id", requestID), zap.Error(err))
		}
		return StatusView{}, false
	}
	var view StatusView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.Warn("status cache entry unreadable", zap.String("request_id", requestID), zap.Error(err))
		return StatusView{}, false
	}
	return view, true
}

func (c *RedisStatusCache) Put(ctx context.Context, view StatusView) {
	payload, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusCachePrefix+view.RequestID, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("status cache write failed", zap.String("request_id", view.RequestID), zap.Error(err))
	}
}

// Delete drops a cached view. A failure is logged; the entry then ages out.
func (c *RedisStatusCache) Delete(ctx context.Context, requestID string) {
	if err := c.client.Del(ctx, statusCachePrefix+requestID).Err(); err != nil {
		c.logger.Warn("status cache delete failed", zap.String("request_id", requestID), zap.Error(err))
	}
}
