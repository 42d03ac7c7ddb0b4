package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/infra/cache"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// KEYS[1] window key. ARGV: now ms, window ms, limit, member.
// Returns {allowed, count, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, count, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

type redisStore struct {
	redis        *redis.Client
	uuidProvider func() uuid.UUID
}

type RedisStoreOption func(*redisStore)

func WithUUIDProvider(p func() uuid.UUID) RedisStoreOption {
	return func(s *redisStore) {
		s.uuidProvider = p
	}
}

func NewRedisStore(redisClient *redis.Client, opts ...RedisStoreOption) Store {
	s := &redisStore{
		redis:        redisClient,
		uuidProvider: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func windowKey(identifier string) string {
	return fmt.Sprintf(cache.RateLimitKeyPattern, identifier)
}

func (s *redisStore) Admit(
	ctx context.Context,
	identifier string,
	limit int,
	window time.Duration,
	now time.Time,
) (Decision, error) {
	res, err := slidingWindowScript.Run(
		ctx,
		s.redis,
		[]string{windowKey(identifier)},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.Itoa(limit),
		s.uuidProvider().String(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("sliding window script failed: %w", err)
	}
	return parseScriptResult(res)
}

func parseScriptResult(res interface{}) (Decision, error) {
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, errors.New("unexpected sliding window script result")
	}
	ints := make([]int64, len(values))
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("unexpected sliding window value %T", v)
		}
		ints[i] = n
	}
	return Decision{
		Allowed:    ints[0] == 1,
		Count:      int(ints[1]),
		RetryAfter: time.Duration(ints[2]) * time.Millisecond,
	}, nil
}
