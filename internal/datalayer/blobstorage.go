package datalayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/glizzus/voicelink/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrBlobNotFound = errors.New("blob not found")

type PutOptions struct {
	Size        int64
	ContentType string
}

// BlobStorage holds uploaded audio, addressed by key.
type BlobStorage interface {
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error
	// Get opens the blob for reading. The caller closes it.
	// A missing key returns ErrBlobNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage(cfg *config.MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Username, cfg.Password, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func NewMinioStorageFromEnv() (*MinioStorage, error) {
	cfg, err := config.NewMinioConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewMinioStorage(cfg)
}

func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	// If the bucket is already owned, succeed
	if err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	}
	return nil
}

var _ BlobStorage = (*MinioStorage)(nil)

func (s *MinioStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, data, opts.Size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	return err
}

func (s *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before playback starts.
	if _, err := object.Stat(); err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	return object, nil
}

// MemoryStorage keeps blobs in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

var _ BlobStorage = (*MemoryStorage)(nil)

func (s *MemoryStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	blob, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(blob)), nil
}
