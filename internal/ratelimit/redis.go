package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/blastwave/internal/config"
	"go.uber.org/zap"
)

// NewRedisClient builds the shared redis client. A nil client means the
// limiter and lock degrade to their local fallbacks.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		log.Info("redis rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}
