package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/glizzus/voicelink/internal/config"
	"github.com/glizzus/voicelink/internal/datalayer"
	"github.com/glizzus/voicelink/internal/handler"
	"github.com/glizzus/voicelink/internal/player"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/worker"
	"github.com/redis/go-redis/v9"
)

var dryRun = flag.Bool("dry-run", false, "Do not use Discord, just log the commands that would run")

func runWorkerForever() error {
	flag.Parse()
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	level, err := logConfig.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetLogLoggerLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	rdb := redis.NewClient(redisConfig.Options())
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	consumer, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}
	queue, err := worker.NewRedisCommandQueue(ctx, rdb, consumer)
	if err != nil {
		return err
	}
	blacklist := worker.NewRedisBlacklist(rdb)

	if *dryRun {
		return consume(ctx, queue, blacklist, func(ctx context.Context, cmd worker.VoiceCommand) error {
			slog.Info("Dry run mode: command would be executed", "commandID", cmd.ID, "action", cmd.Action, "guildID", cmd.GuildID, "channelID", cmd.ChannelID, "source", cmd.Source)
			return nil
		})
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	voiceConfig, err := config.NewVoiceConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load voice config: %w", err)
	}

	var blobs datalayer.BlobStorage
	if minioConfig, err := config.NewOptionalMinioConfigFromEnv(); err != nil {
		return fmt.Errorf("failed to load minio config: %w", err)
	} else if minioConfig != nil {
		storage, err := datalayer.NewMinioStorage(minioConfig)
		if err != nil {
			return fmt.Errorf("failed to create minio storage: %w", err)
		}
		blobs = storage
	}

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	client := voice.NewClient(handler.NewDiscordGateway(session), voiceConfig)
	defer client.Close()
	client.RegisterVoiceMode(worker.DefaultVoiceMode, player.New(client, player.NewSourceOpener(blobs)))
	client.RegisterVoiceMode("silence", player.NewSilence(client))

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Error("failed to close discord session", "error", err)
		}
	}()

	return consume(ctx, queue, blacklist, func(ctx context.Context, cmd worker.VoiceCommand) error {
		if cmd.Action == worker.ActionJoin {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, voiceConfig.JoinTimeout)
			defer cancel()
		}
		return worker.Execute(ctx, client, cmd)
	})
}

func consume(ctx context.Context, queue *worker.RedisCommandQueue, blacklist worker.Blacklist, handle worker.CommandHandler) error {
	err := queue.Consume(ctx, func(ctx context.Context, cmd worker.VoiceCommand) error {
		if err := worker.Authorize(ctx, blacklist, cmd); err != nil {
			if errors.Is(err, worker.ErrBlacklisted) {
				slog.Info("skipping blacklisted command", "commandID", cmd.ID, "requestedBy", cmd.RequestedBy, "guildID", cmd.GuildID)
				return nil
			}
			return err
		}
		return handle(ctx, cmd)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := runWorkerForever(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
