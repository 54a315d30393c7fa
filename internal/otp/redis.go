package otp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter keys outlive the code so a lockout survives record expiry.
const attemptsTTL = time.Hour

// recordTTLGrace keeps expired records around long enough for expiry
// detection to report "expired" instead of "not found".
const recordTTLGrace = time.Hour

// RedisStore keeps passcode records and attempt counters in Redis so
// multiple instances share one view of the reset flow.
type RedisStore struct {
	client *redis.Client
	prefix string
	nowFn  func() time.Time
}

// NewRedisStore constructs a RedisStore. A nil nowFn defaults to time.Now.
func NewRedisStore(client *redis.Client, prefix string, nowFn func() time.Time) *RedisStore {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &RedisStore{client: client, prefix: strings.TrimSpace(prefix), nowFn: nowFn}
}

func (s *RedisStore) recordKey(identity string) string {
	if s.prefix == "" {
		return "otp:" + identity
	}
	return s.prefix + ":otp:" + identity
}

func (s *RedisStore) attemptsKey(identity string) string {
	if s.prefix == "" {
		return "otp:attempts:" + identity
	}
	return s.prefix + ":otp:attempts:" + identity
}

// Get returns the record for identity, or nil when absent.
func (s *RedisStore) Get(ctx context.Context, identity string) (*Record, error) {
	raw, errGet := s.client.Get(ctx, s.recordKey(identity)).Result()
	if errors.Is(errGet, redis.Nil) {
		return nil, nil
	}
	if errGet != nil {
		return nil, errGet
	}
	var rec Record
	if errUnmarshal := json.Unmarshal([]byte(raw), &rec); errUnmarshal != nil {
		return nil, errUnmarshal
	}
	return &rec, nil
}

// Put creates or replaces the record for identity.
func (s *RedisStore) Put(ctx context.Context, identity string, rec Record) error {
	payload, errMarshal := json.Marshal(rec)
	if errMarshal != nil {
		return errMarshal
	}
	ttl := rec.ExpiresAt.Sub(s.nowFn()) + recordTTLGrace
	if ttl <= 0 {
		ttl = recordTTLGrace
	}
	return s.client.Set(ctx, s.recordKey(identity), payload, ttl).Err()
}

// Delete removes the record for identity.
func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	return s.client.Del(ctx, s.recordKey(identity)).Err()
}

// Attempts returns the failed-attempt count for identity.
func (s *RedisStore) Attempts(ctx context.Context, identity string) (int, error) {
	count, errGet := s.client.Get(ctx, s.attemptsKey(identity)).Int()
	if errors.Is(errGet, redis.Nil) {
		return 0, nil
	}
	if errGet != nil {
		return 0, errGet
	}
	return count, nil
}

var attemptsIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// IncrementAttempts bumps and returns the failed-attempt count.
func (s *RedisStore) IncrementAttempts(ctx context.Context, identity string) (int, error) {
	res, errEval := attemptsIncrScript.Run(ctx, s.client, []string{s.attemptsKey(identity)}, int(attemptsTTL.Seconds())).Result()
	if errEval != nil {
		return 0, errEval
	}
	count, ok := res.(int64)
	if !ok {
		return 0, errors.New("otp redis: unexpected response type")
	}
	return int(count), nil
}

// ResetAttempts clears the failed-attempt count for identity.
func (s *RedisStore) ResetAttempts(ctx context.Context, identity string) error {
	return s.client.Del(ctx, s.attemptsKey(identity)).Err()
}
