package config

import (
	"context"
	"os"

	"github.com/sethvargo/go-envconfig"
)

type MinioConfig struct {
	Endpoint string `env:"MINIO_ENDPOINT, required"`
	Username string `env:"MINIO_USERNAME, required"`
	Password string `env:"MINIO_PASSWORD, required"`
	Bucket   string `env:"MINIO_BUCKET, default=voicelink"`
	Secure   bool   `env:"MINIO_SECURE"`
}

func NewMinioConfigFromEnv() (*MinioConfig, error) {
	var cfg MinioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NewOptionalMinioConfigFromEnv returns nil without an error when
// MINIO_ENDPOINT is not set. Once it is set the other fields are required.
func NewOptionalMinioConfigFromEnv() (*MinioConfig, error) {
	if endpoint, ok := os.LookupEnv("MINIO_ENDPOINT"); !ok || endpoint == "" {
		return nil, nil
	}
	return NewMinioConfigFromEnv()
}
