package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type StatusConfig struct {
	Addr string `env:"STATUS_ADDR, default=:8080"`
}

func NewStatusConfigFromEnv() (*StatusConfig, error) {
	var cfg StatusConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL, default=info"`
}

func NewLogConfigFromEnv() (*LogConfig, error) {
	var cfg LogConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog.Level.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Level)
}
