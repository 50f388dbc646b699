package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-envconfig"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	cfg, err := NewOptionalRedisConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	return cfg, nil
}

// NewOptionalRedisConfigFromEnv returns nil without an error
// when REDIS_ADDR is not set.
func NewOptionalRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return nil, nil
	}
	return &cfg, nil
}

func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}
