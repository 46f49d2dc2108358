package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"linkhub/pkg/logger"
)

type RateLimitRepository interface {
	// Allow consumes one unit from the fixed window behind key and reports
	// whether the caller is still within limit, plus the units used so far.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

// Allow increments first and compares after, so concurrent requests can never
// all observe a count just under the limit and slip through together.
func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to advance rate limit window", "key", key, "error", err)
		return false, 0, err
	}
	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}
	return count <= int64(limit), count, nil
}
