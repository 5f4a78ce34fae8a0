package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/blastwave/internal/config"
	"go.uber.org/zap"
)

// ProcessLimiter is the local abuse guard on the process endpoint, distinct
// from the provider-side adaptive throttling.
type ProcessLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewProcessLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *ProcessLimiter {
	return &ProcessLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.ProcessRate,
		burst:  cfg.RateLimit.ProcessBurst,
		log:    log.Named("ratelimit.process"),
	}
}

// Allow reports whether a process call for the tenant may proceed. Without a
// configured bucket the guard is advisory and allows everything; on redis
// errors it fails open so an outage never blocks dispatch.
func (p *ProcessLimiter) Allow(ctx context.Context, tenantID string) bool {
	if p == nil || p.bucket == nil {
		return true
	}
	result, err := p.bucket.Allow(ctx, "blastwave:process:"+tenantID, p.rate, p.burst)
	if err != nil {
		p.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true
	}
	return result.Allowed
}
