package eventsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/infra/cache"
	"github.com/mitchellh/mapstructure"
)

const RedisSinkName = "redis"

type RedisConfig struct {
	Channel string `mapstructure:"channel"`
}

type redisSink struct {
	cache cache.Client
	cfg   RedisConfig
}

func NewRedisSink(c cache.Client) Sink {
	return &redisSink{cache: c}
}

func (s *redisSink) Name() string {
	return RedisSinkName
}

func (s *redisSink) ValidateConfig(settings map[string]interface{}) error {
	var conf RedisConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid redis sink config: %w", err)
	}
	if conf.Channel == "" {
		return errors.New("redis sink channel is required")
	}
	return nil
}

func (s *redisSink) WithSettings(settings map[string]interface{}) (Sink, error) {
	var conf RedisConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid redis sink config: %w", err)
	}
	return &redisSink{cache: s.cache, cfg: conf}, nil
}

func (s *redisSink) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.cache.Publish(ctx, s.cfg.Channel, data)
}

func (s *redisSink) Close() {}
