package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	BlacklistUsersKey  = "voice_blacklist_users"
	BlacklistGuildsKey = "voice_blacklist_guilds"
)

// Blacklist decides whether a request may reach the voice client.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error)
}

type BlacklistAdder interface {
	AddUser(ctx context.Context, userID string) error
	AddGuild(ctx context.Context, guildID string) error
}

type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

var (
	_ Blacklist      = (*RedisBlacklist)(nil)
	_ BlacklistAdder = (*RedisBlacklist)(nil)
)

func (b *RedisBlacklist) AddUser(ctx context.Context, userID string) error {
	if _, err := b.client.SAdd(ctx, BlacklistUsersKey, userID).Result(); err != nil {
		return fmt.Errorf("failed to add user %s to blacklist: %w", userID, err)
	}
	return nil
}

func (b *RedisBlacklist) AddGuild(ctx context.Context, guildID string) error {
	if _, err := b.client.SAdd(ctx, BlacklistGuildsKey, guildID).Result(); err != nil {
		return fmt.Errorf("failed to add guild %s to blacklist: %w", guildID, err)
	}
	return nil
}

func (b *RedisBlacklist) IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error) {
	var user, guild *redis.BoolCmd
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		user = pipe.SIsMember(ctx, BlacklistUsersKey, userID)
		guild = pipe.SIsMember(ctx, BlacklistGuildsKey, guildID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return user.Val() || guild.Val(), nil
}

type MemoryBlacklist struct {
	mu     sync.RWMutex
	users  map[string]struct{}
	guilds map[string]struct{}
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		users:  make(map[string]struct{}),
		guilds: make(map[string]struct{}),
	}
}

var (
	_ Blacklist      = (*MemoryBlacklist)(nil)
	_ BlacklistAdder = (*MemoryBlacklist)(nil)
)

func (b *MemoryBlacklist) AddUser(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = struct{}{}
	return nil
}

func (b *MemoryBlacklist) AddGuild(ctx context.Context, guildID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guilds[guildID] = struct{}{}
	return nil
}

func (b *MemoryBlacklist) IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, user := b.users[userID]
	_, guild := b.guilds[guildID]
	return user || guild, nil
}
