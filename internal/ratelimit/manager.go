package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerDuration = 30 * time.Second

// Manager prefers a Redis backend when configured and falls back to process
// memory while Redis is unavailable.
type Manager struct {
	nowFn         func() time.Time
	memoryLimiter Limiter
	redisLimiter  Limiter

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewManager constructs a Manager. A nil client disables the Redis backend;
// a nil nowFn defaults to time.Now.
func NewManager(client *redis.Client, prefix string, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	m := &Manager{
		nowFn:         nowFn,
		memoryLimiter: NewMemoryLimiter(),
	}
	if client != nil {
		m.redisLimiter = NewRedisLimiter(client, prefix)
	}
	return m
}

// Blocked reports whether identity is locked out.
func (m *Manager) Blocked(ctx context.Context, identity string) (Result, error) {
	now := m.nowFn()
	if limiter := m.activeRedis(now); limiter != nil {
		result, errBlocked := limiter.Blocked(ctx, identity, now)
		if errBlocked == nil {
			return result, nil
		}
		m.tripBreaker(errBlocked, now)
	}
	return m.memoryLimiter.Blocked(ctx, identity, now)
}

// Fail records a failed attempt for identity.
func (m *Manager) Fail(ctx context.Context, identity string) error {
	now := m.nowFn()
	if limiter := m.activeRedis(now); limiter != nil {
		errFail := limiter.Fail(ctx, identity, now)
		if errFail == nil {
			return nil
		}
		m.tripBreaker(errFail, now)
	}
	return m.memoryLimiter.Fail(ctx, identity, now)
}

// Clear drops all tracking for identity.
func (m *Manager) Clear(ctx context.Context, identity string) error {
	now := m.nowFn()
	if limiter := m.activeRedis(now); limiter != nil {
		errClear := limiter.Clear(ctx, identity)
		if errClear == nil {
			return nil
		}
		m.tripBreaker(errClear, now)
	}
	return m.memoryLimiter.Clear(ctx, identity)
}

func (m *Manager) activeRedis(now time.Time) Limiter {
	if m.redisLimiter == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return nil
	}
	m.breakerUntil = time.Time{}
	return m.redisLimiter
}

func (m *Manager) tripBreaker(err error, now time.Time) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}
