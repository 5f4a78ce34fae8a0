package ratelimit

import (
	"sync"
	"time"

	"github.com/smallbiznis/blastwave/internal/clock"
	"github.com/smallbiznis/blastwave/internal/config"
)

// TenantRateLimit is the advisory pacing snapshot for one tenant.
type TenantRateLimit struct {
	DelayMs       int
	InCooldown    bool
	CooldownUntil time.Time
}

type tenantState struct {
	delayMs       int
	failureStreak int
	throttleCount int
	cooldownUntil time.Time
}

// AdaptiveLimiter holds per-tenant send pacing state. The state is shared
// across every campaign of a tenant; updates go through one mutex so
// concurrent batches never lose signals.
type AdaptiveLimiter struct {
	holder *config.DispatchConfigHolder
	clock  clock.Clock

	mu     sync.Mutex
	states map[string]*tenantState
}

func NewAdaptiveLimiter(holder *config.DispatchConfigHolder, clk clock.Clock) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		holder: holder,
		clock:  clk,
		states: make(map[string]*tenantState),
	}
}

// GetTenantRateLimit returns the current pacing for a tenant.
func (l *AdaptiveLimiter) GetTenantRateLimit(tenantID string) TenantRateLimit {
	cfg := l.holder.Get()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state(tenantID, cfg)
	return TenantRateLimit{
		DelayMs:       state.delayMs,
		InCooldown:    now.Before(state.cooldownUntil),
		CooldownUntil: state.cooldownUntil,
	}
}

// RecordSuccess lowers the tenant delay toward the configured floor and
// resets the failure streak.
func (l *AdaptiveLimiter) RecordSuccess(tenantID string) {
	cfg := l.holder.Get()

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state(tenantID, cfg)
	state.failureStreak = 0
	state.throttleCount = 0
	state.delayMs -= cfg.FailureStepMs
	if state.delayMs < cfg.MinDelayMs {
		state.delayMs = cfg.MinDelayMs
	}
}

// RecordFailure raises the tenant delay. A throttled failure additionally
// opens a cooldown window that doubles on each consecutive throttle, capped
// at the configured maximum.
func (l *AdaptiveLimiter) RecordFailure(tenantID string, throttled bool) {
	cfg := l.holder.Get()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state(tenantID, cfg)
	state.failureStreak++
	state.delayMs += cfg.FailureStepMs
	if state.delayMs > cfg.MaxDelayMs {
		state.delayMs = cfg.MaxDelayMs
	}

	if !throttled {
		return
	}

	state.throttleCount++
	backoff := time.Duration(cfg.CooldownSeconds) * time.Second
	for i := 1; i < state.throttleCount; i++ {
		backoff *= 2
		if backoff >= time.Duration(cfg.CooldownMaxSeconds)*time.Second {
			break
		}
	}
	if max := time.Duration(cfg.CooldownMaxSeconds) * time.Second; backoff > max {
		backoff = max
	}
	state.cooldownUntil = now.Add(backoff)
}

func (l *AdaptiveLimiter) state(tenantID string, cfg config.DispatchConfig) *tenantState {
	state, ok := l.states[tenantID]
	if !ok {
		state = &tenantState{delayMs: cfg.BaseDelayMs}
		l.states[tenantID] = state
	}
	return state
}
