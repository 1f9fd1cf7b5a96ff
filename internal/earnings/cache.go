package earnings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rajulearn/backend/internal/models"
)

// RedisCache keeps overviews in Redis for ttl. It also implements
// commission.Notifier so a credited leg evicts the beneficiary's entry.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(userID uuid.UUID) string {
	return "earnings:overview:" + userID.String()
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*Overview, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var o Overview
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false, err
	}
	return &o, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, o *Overview) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(userID), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, cacheKey(userID)).Err()
}

func (c *RedisCache) CommissionCredited(ctx context.Context, cm *models.Commission) {
	if err := c.Invalidate(ctx, cm.BeneficiaryID); err != nil {
		c.log.Warn("earnings cache invalidation failed", "user_id", cm.BeneficiaryID, "error", err)
	}
}
