package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/blastwave/internal/config"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// DispatchLocker serializes batch dispatch per campaign. With redis it is a
// SetNX lease shared across replicas; without redis it degrades to a
// process-local lock table.
type DispatchLocker struct {
	locker *Locker
	ttl    time.Duration

	mu   sync.Mutex
	held map[string]struct{}
}

func NewDispatchLocker(cfg config.Config, client *redis.Client) *DispatchLocker {
	ttl := time.Duration(cfg.RateLimit.DispatchLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &DispatchLocker{
		locker: NewLocker(client),
		ttl:    ttl,
		held:   make(map[string]struct{}),
	}
}

// Acquire takes the per-campaign dispatch lease. The release func is safe to
// call regardless of whether acquisition succeeded.
func (d *DispatchLocker) Acquire(ctx context.Context, campaignID string) (func(), bool, error) {
	key := "blastwave:dispatch:" + campaignID

	if d.locker != nil {
		token, ok, err := d.locker.TryLock(ctx, key, d.ttl)
		if err != nil {
			return func() {}, false, err
		}
		if !ok {
			return func() {}, false, nil
		}
		return func() {
			_ = d.locker.Release(context.WithoutCancel(ctx), key, token)
		}, true, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.held[key]; exists {
		return func() {}, false, nil
	}
	d.held[key] = struct{}{}
	return func() {
		d.mu.Lock()
		delete(d.held, key)
		d.mu.Unlock()
	}, true, nil
}
