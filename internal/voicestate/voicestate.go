// Package voicestate remembers which voice channel each user is in.
package voicestate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store records voice channel membership per user. An empty channelID
// removes the user.
type Store interface {
	Record(ctx context.Context, userID, channelID string) error
	Lookup(ctx context.Context, userID string) (string, bool, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	channels map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{channels: make(map[string]string)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Record(ctx context.Context, userID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channelID == "" {
		delete(s.channels, userID)
		return nil
	}
	s.channels[userID] = channelID
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channelID, ok := s.channels[userID]
	return channelID, ok, nil
}

// RedisKey is the hash holding user id -> channel id.
const RedisKey = "voice_states"

// RedisStore shares voice states between processes.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: RedisKey}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Record(ctx context.Context, userID, channelID string) error {
	var err error
	if channelID == "" {
		err = s.client.HDel(ctx, s.key, userID).Err()
	} else {
		err = s.client.HSet(ctx, s.key, userID, channelID).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to record voice state for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, userID string) (string, bool, error) {
	channelID, err := s.client.HGet(ctx, s.key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up voice state for %s: %w", userID, err)
	}
	return channelID, true, nil
}
