package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/glizzus/voicelink/internal/config"
	"github.com/glizzus/voicelink/internal/datalayer"
	"github.com/glizzus/voicelink/internal/handler"
	"github.com/glizzus/voicelink/internal/player"
	"github.com/glizzus/voicelink/internal/server"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/voicestate"
	"github.com/glizzus/voicelink/internal/worker"
	"github.com/redis/go-redis/v9"
)

func setupLogging() error {
	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	level, err := logConfig.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetLogLoggerLevel(level)
	return nil
}

// openBlobStorage returns nil when minio is not configured.
func openBlobStorage(ctx context.Context) (datalayer.BlobStorage, error) {
	minioConfig, err := config.NewOptionalMinioConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load minio config: %w", err)
	}
	if minioConfig == nil {
		slog.Warn("MINIO_ENDPOINT is not set, blob sources are disabled")
		return nil, nil
	}

	storage, err := datalayer.NewMinioStorage(minioConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure minio bucket: %w", err)
	}
	return storage, nil
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	if err := setupLogging(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	voiceConfig, err := config.NewVoiceConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load voice config: %w", err)
	}
	statusConfig, err := config.NewStatusConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load status config: %w", err)
	}
	redisConfig, err := config.NewOptionalRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	var (
		blacklist worker.Blacklist = worker.NewMemoryBlacklist()
		states    voicestate.Store = voicestate.NewMemoryStore()
	)
	if redisConfig != nil {
		rdb := redis.NewClient(redisConfig.Options())
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		blacklist = worker.NewRedisBlacklist(rdb)
		states = voicestate.NewRedisStore(rdb)
	} else {
		slog.Warn("REDIS_ADDR is not set, keeping the blacklist and voice states in memory")
	}

	blobs, err := openBlobStorage(ctx)
	if err != nil {
		return err
	}

	router := handler.NewRouter(blacklist, nil)
	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready:             handler.ReadyLog,
		InteractionCreate: router.InteractionCreate,
		VoiceStateUpdate:  handler.RecordVoiceStates(states),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	client := voice.NewClient(handler.NewDiscordGateway(session), voiceConfig)
	defer client.Close()
	client.RegisterVoiceMode(worker.DefaultVoiceMode, player.New(client, player.NewSourceOpener(blobs)))
	client.RegisterVoiceMode("silence", player.NewSilence(client))

	flows := &handler.VoiceFlows{
		Controller:  client,
		States:      states,
		Guilds:      handler.SessionGuildLookup{Session: session},
		JoinTimeout: voiceConfig.JoinTimeout,
	}
	flows.Register(router)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.ClientID, discordConfig.CommandGuildID()); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	api := server.NewAPI(client, voiceConfig.JoinTimeout)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(ctx, statusConfig.Addr, server.SetupRouter(api))
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
