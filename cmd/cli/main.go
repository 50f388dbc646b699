package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/glizzus/voicelink/internal/config"
	"github.com/glizzus/voicelink/internal/opus"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func discover(c *cli.Context) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(c.String("ip"), strconv.Itoa(c.Int("port"))))
	if err != nil {
		return cli.Exit("Invalid address: "+err.Error(), 1)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return cli.Exit("Failed to open UDP socket: "+err.Error(), 1)
	}
	defer conn.Close()

	ip, port, err := voice.Discover(conn, addr, uint32(c.Uint("ssrc")), c.Duration("timeout"))
	if err != nil {
		return cli.Exit("Discovery failed: "+err.Error(), 1)
	}
	fmt.Printf("%s:%d\n", ip, port)
	return nil
}

func rtpHeader(c *cli.Context) error {
	header, err := voice.MarshalHeader(uint16(c.Uint("seq")), uint32(c.Uint("ts")), uint32(c.Uint("ssrc")))
	if err != nil {
		return cli.Exit("Failed to build header: "+err.Error(), 1)
	}
	fmt.Println(hex.EncodeToString(header))
	return nil
}

func encode(c *cli.Context) error {
	in, err := os.Open(c.String("in"))
	if err != nil {
		return cli.Exit("Failed to open input: "+err.Error(), 1)
	}
	defer in.Close()

	out, err := os.Create(c.String("out"))
	if err != nil {
		return cli.Exit("Failed to create output: "+err.Error(), 1)
	}
	defer out.Close()

	frames, err := opus.Encode(c.Context, in)
	if err != nil {
		return cli.Exit("Failed to start encoder: "+err.Error(), 1)
	}
	defer frames.Close()

	n, err := io.Copy(out, frames)
	if err != nil {
		return cli.Exit("Failed to encode: "+err.Error(), 1)
	}
	log.Printf("Wrote %d bytes to %s", n, c.String("out"))
	return nil
}

func enqueue(c *cli.Context) error {
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return cli.Exit("Failed to load redis config: "+err.Error(), 1)
	}
	rdb := redis.NewClient(redisConfig.Options())
	defer rdb.Close()

	queue, err := worker.NewRedisCommandQueue(c.Context, rdb, "cli")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cmd := worker.VoiceCommand{
		Action:      worker.Action(c.String("action")),
		GuildID:     c.String("guild-id"),
		ChannelID:   c.String("channel-id"),
		Source:      c.String("source"),
		Mode:        c.String("mode"),
		RequestedBy: c.String("requested-by"),
	}
	if err := queue.Publish(c.Context, cmd); err != nil {
		if errors.Is(err, worker.ErrInvalidCommand) {
			return cli.Exit(err.Error(), 2)
		}
		return cli.Exit("Failed to publish command: "+err.Error(), 1)
	}
	log.Println("Command enqueued successfully.")
	return nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "voicelink-cli",
		Description: "A development CLI tool for poking at voice servers and workers without the bot",
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "Run one UDP IP discovery against a voice server",
				Action: discover,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ip", Usage: "Voice server IP", Required: true},
					&cli.IntFlag{Name: "port", Usage: "Voice server UDP port", Required: true},
					&cli.UintFlag{Name: "ssrc", Usage: "SSRC from the READY payload", Required: true},
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for the reply", Value: config.DefaultDiscoveryTimeout},
				},
			},
			{
				Name:   "rtp-header",
				Usage:  "Print the hex of a voice RTP header",
				Action: rtpHeader,
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "ssrc", Required: true},
					&cli.UintFlag{Name: "seq"},
					&cli.UintFlag{Name: "ts"},
				},
			},
			{
				Name:   "encode",
				Usage:  "Transcode an audio file into a length-prefixed Opus frame file",
				Action: encode,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Audio file to read", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Frame file to write (.frames)", Required: true},
				},
			},
			{
				Name:   "enqueue",
				Usage:  "Publish a voice command for the workers",
				Action: enqueue,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "action", Usage: "join, leave, play, stop or mode", Required: true},
					&cli.StringFlag{Name: "guild-id"},
					&cli.StringFlag{Name: "channel-id"},
					&cli.StringFlag{Name: "source"},
					&cli.StringFlag{Name: "mode"},
					&cli.StringFlag{Name: "requested-by", Value: "cli"},
				},
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
