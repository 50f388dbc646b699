package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// VoiceConfig holds the timings of the voice engine.
// Zero values are replaced by the defaults below, so a literal
// VoiceConfig{} is usable in tests.
type VoiceConfig struct {
	SettleDelay        time.Duration `env:"VOICE_SETTLE_DELAY, default=500ms"`
	DiscoveryTimeout   time.Duration `env:"VOICE_DISCOVERY_TIMEOUT, default=10s"`
	AbnormalCloseDelay time.Duration `env:"VOICE_ABNORMAL_CLOSE_DELAY, default=3s"`
	ServerCrashDelay   time.Duration `env:"VOICE_SERVER_CRASH_DELAY, default=5s"`
	HandshakeTimeout   time.Duration `env:"VOICE_HANDSHAKE_TIMEOUT, default=10s"`
	FrameInterval      time.Duration `env:"VOICE_FRAME_INTERVAL, default=20ms"`
	JoinTimeout        time.Duration `env:"VOICE_JOIN_TIMEOUT, default=15s"`
	GatewayScheme      string        `env:"VOICE_GATEWAY_SCHEME, default=wss"`
	GatewayVersion     int           `env:"VOICE_GATEWAY_VERSION, default=4"`

	// GatewayPort is appended to the voice endpoint when set. Discord
	// endpoints are dialed on the scheme's default port.
	GatewayPort int `env:"VOICE_GATEWAY_PORT"`

	// DisablePacing sends frames as fast as the source yields them.
	DisablePacing bool `env:"VOICE_DISABLE_PACING"`
}

const (
	DefaultSettleDelay        = 500 * time.Millisecond
	DefaultDiscoveryTimeout   = 10 * time.Second
	DefaultAbnormalCloseDelay = 3 * time.Second
	DefaultServerCrashDelay   = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultFrameInterval      = 20 * time.Millisecond
	DefaultJoinTimeout        = 15 * time.Second
	DefaultGatewayScheme      = "wss"
	DefaultGatewayVersion     = 4
)

func NewVoiceConfigFromEnv() (*VoiceConfig, error) {
	var cfg VoiceConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c *VoiceConfig) WithDefaults() *VoiceConfig {
	var out VoiceConfig
	if c != nil {
		out = *c
	}
	if out.SettleDelay <= 0 {
		out.SettleDelay = DefaultSettleDelay
	}
	if out.DiscoveryTimeout <= 0 {
		out.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if out.AbnormalCloseDelay <= 0 {
		out.AbnormalCloseDelay = DefaultAbnormalCloseDelay
	}
	if out.ServerCrashDelay <= 0 {
		out.ServerCrashDelay = DefaultServerCrashDelay
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if out.FrameInterval <= 0 {
		out.FrameInterval = DefaultFrameInterval
	}
	if out.JoinTimeout <= 0 {
		out.JoinTimeout = DefaultJoinTimeout
	}
	if out.GatewayScheme == "" {
		out.GatewayScheme = DefaultGatewayScheme
	}
	if out.GatewayVersion <= 0 {
		out.GatewayVersion = DefaultGatewayVersion
	}
	return &out
}
