package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/infra/cache"
)

type redisThrottleRepository struct {
	cache cache.Client
}

func NewRedisThrottleRepository(cache cache.Client) response.ThrottleRepository {
	return &redisThrottleRepository{
		cache: cache,
	}
}

func (r *redisThrottleRepository) SetIfAbsent(ctx context.Context, identifier string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf(cache.ThrottleKeyPattern, identifier)
	set, err := r.cache.SetNX(ctx, key, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("failed to set throttle flag for %s: %w", identifier, err)
	}
	return set, nil
}

func (r *redisThrottleRepository) IsThrottled(ctx context.Context, identifier string) (bool, error) {
	key := fmt.Sprintf(cache.ThrottleKeyPattern, identifier)
	ok, err := r.cache.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read throttle flag for %s: %w", identifier, err)
	}
	return ok, nil
}
