package cache

import (
	"context"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/go-redis/redis_rate/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter caps outbound provider requests per minute, shared across replicas
type RateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	log     *zap.Logger
}

// NewRateLimiter creates a limiter allowing perMinute requests per provider
func NewRateLimiter(client *redis.Client, perMinute int, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit:   redis_rate.PerMinute(perMinute),
		log:     log,
	}
}

// Allow implements pricing.Limiter
func (l *RateLimiter) Allow(ctx context.Context, key string) error {
	res, err := l.limiter.Allow(ctx, "pricebot:provider:"+key, l.limit)
	if err != nil {
		// fail open when Redis is unreachable
		l.log.Warn("rate limiter unavailable, allowing request",
			zap.String("provider", key),
			zap.Error(err),
		)
		return nil
	}
	if res.Allowed == 0 {
		return errors.Wrapf(pricing.ErrRateLimited, "%s, retry after %s", key, res.RetryAfter)
	}
	return nil
}
