package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glizzus/voicelink/internal/generator"
	"github.com/redis/go-redis/v9"
)

const (
	CommandStream = "voice_commands"
	CommandGroup  = "voice_workers"
)

// CommandHandler handles one consumed command. Its error is logged; the
// command is acknowledged either way.
type CommandHandler func(ctx context.Context, cmd VoiceCommand) error

type RedisCommandQueue struct {
	client   *redis.Client
	consumer string
	ids      generator.Generator[string]
	block    time.Duration
}

// NewRedisCommandQueue creates the consumer group if it does not exist.
func NewRedisCommandQueue(ctx context.Context, client *redis.Client, consumer string) (*RedisCommandQueue, error) {
	err := client.XGroupCreateMkStream(ctx, CommandStream, CommandGroup, "$").Err()
	if err != nil && !errors.Is(err, redis.Nil) && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisCommandQueue{
		client:   client,
		consumer: consumer,
		ids:      generator.NewPrefixedGenerator("cmd", &generator.UUIDV4Generator{}),
		block:    5 * time.Second,
	}, nil
}

// Publish appends the commands to the stream. Commands without an id get one.
func (q *RedisCommandQueue) Publish(ctx context.Context, cmds ...VoiceCommand) error {
	for i := range cmds {
		if err := cmds[i].Validate(); err != nil {
			return err
		}
		if cmds[i].ID != "" {
			continue
		}
		id, err := q.ids.Next()
		if err != nil {
			return fmt.Errorf("failed to generate command id: %w", err)
		}
		cmds[i].ID = id
	}

	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, cmd := range cmds {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: CommandStream,
				Values: cmd.values(),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish voice commands: %w", err)
	}
	return nil
}

// Consume delivers commands to handle until ctx is done. A command that
// was read is acknowledged even if ctx ends while it is handled.
func (q *RedisCommandQueue) Consume(ctx context.Context, handle CommandHandler) error {
	ackCtx := context.WithoutCancel(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    CommandGroup,
			Consumer: q.consumer,
			Streams:  []string{CommandStream, ">"},
			Count:    10,
			Block:    q.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read voice commands: %w", err)
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				cmd := commandFromValues(message.Values)
				logger := slog.With("commandID", cmd.ID, "action", cmd.Action, "guildID", cmd.GuildID)

				if err := cmd.Validate(); err != nil {
					logger.Warn("dropping invalid voice command", "error", err)
				} else if err := handle(ctx, cmd); err != nil {
					logger.Error("voice command failed", "error", err)
				} else {
					logger.Info("voice command handled")
				}

				if err := q.client.XAck(ackCtx, CommandStream, CommandGroup, message.ID).Err(); err != nil {
					logger.Error("failed to acknowledge voice command", "error", err)
				}
			}
		}
	}
}
