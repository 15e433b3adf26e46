package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Strategy is a rate limiting algorithm.
// key identifies the principal (here: the customer), limit is the
// allowed count (or bucket capacity) per window.
type Strategy interface {
	Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error)
}

type Manager struct {
	rdb      *redis.Client
	strategy Strategy
}

func NewManager(rdb *redis.Client, strategy Strategy) *Manager {
	return &Manager{
		rdb:      rdb,
		strategy: strategy,
	}
}

func (m *Manager) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.strategy.Allow(ctx, m.rdb, key, limit, window)
}

// FixedWindowStrategy counts requests per fixed window. The INCR and
// EXPIRE run atomically in a Lua script.
type FixedWindowStrategy struct{}

func (s *FixedWindowStrategy) Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	const script = `
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call("INCR", key)

		if current == 1 then
			redis.call("EXPIRE", key, window)
		end

		if current > limit then
			return 0
		end
		return 1
	`

	result, err := rdb.Eval(ctx, script, []string{key}, limit, int(window.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// TokenBucketStrategy refills limit tokens per window and spends one
// token per request. State (tokens, last refill time) lives in a redis
// hash so the check stays atomic across workers.
type TokenBucketStrategy struct{}

func (s *TokenBucketStrategy) Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	const script = `
		local key = KEYS[1]
		local capacity = tonumber(ARGV[1])
		local rate = tonumber(ARGV[2])
		local now = tonumber(ARGV[3])

		local info = redis.call("HMGET", key, "tokens", "last_time")
		local tokens = tonumber(info[1])
		local last_time = tonumber(info[2])

		if tokens == nil then
			tokens = capacity
			last_time = now
		end

		local delta = math.max(0, now - last_time)
		local generated = delta * rate

		tokens = math.min(capacity, tokens + generated)

		if tokens >= 1 then
			tokens = tokens - 1
			redis.call("HMSET", key, "tokens", tokens, "last_time", now)
			redis.call("EXPIRE", key, 60)
			return 1
		else
			return 0
		end
	`

	rate := float64(limit) / window.Seconds()
	if rate <= 0 {
		rate = 1
	}

	now := time.Now().Unix()
	result, err := rdb.Eval(ctx, script, []string{key}, limit, rate, now).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
