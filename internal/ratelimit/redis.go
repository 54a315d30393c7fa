package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var failIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter implements the failure window backed by Redis. The key TTL is
// set on the first failure, so the window is measured from that failure.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

func (l *RedisLimiter) buildKey(identity string) string {
	if l.prefix == "" {
		return "resetfail:" + identity
	}
	return l.prefix + ":resetfail:" + identity
}

// Blocked reports whether identity is locked out at now.
func (l *RedisLimiter) Blocked(ctx context.Context, identity string, now time.Time) (Result, error) {
	if identity == "" || l == nil || l.client == nil {
		return Result{}, nil
	}
	key := l.buildKey(identity)
	count, errGet := l.client.Get(ctx, key).Int()
	if errors.Is(errGet, redis.Nil) {
		return Result{}, nil
	}
	if errGet != nil {
		return Result{}, errGet
	}
	if count < MaxFailures {
		return Result{}, nil
	}
	ttl, errTTL := l.client.PTTL(ctx, key).Result()
	if errTTL != nil {
		return Result{}, errTTL
	}
	if ttl <= 0 {
		return Result{}, nil
	}
	return Result{Blocked: true, Reset: now.Add(ttl)}, nil
}

// Fail records a failed attempt for identity at now.
func (l *RedisLimiter) Fail(ctx context.Context, identity string, _ time.Time) error {
	if identity == "" || l == nil || l.client == nil {
		return nil
	}
	res, errEval := failIncrScript.Run(ctx, l.client, []string{l.buildKey(identity)}, Window.Milliseconds()).Result()
	if errEval != nil {
		return errEval
	}
	if _, ok := res.(int64); !ok {
		return errors.New("rate limit redis: unexpected response type")
	}
	return nil
}

// Clear drops all tracking for identity.
func (l *RedisLimiter) Clear(ctx context.Context, identity string) error {
	if identity == "" || l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.buildKey(identity)).Err()
}
