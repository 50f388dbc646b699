package voice

import (
	"fmt"
	"log/slog"
	"strings"
)

// ConnectionState is an immutable snapshot of what is known about a voice
// session. Every With* method returns a new value; the receiver is never
// modified. Empty strings mean the field was never received.
type ConnectionState struct {
	GuildID   string
	ChannelID string
	SessionID string
	Token     string
	Endpoint  string

	SSRC      uint32
	MediaIP   string
	MediaPort int

	HasServerAssignment bool
	HasStateAssignment  bool
}

// WithServerUpdate applies a voice server assignment. The endpoint is
// stored without its port.
func (s ConnectionState) WithServerUpdate(guildID, token, endpoint string) ConnectionState {
	s.GuildID = guildID
	s.Token = token
	s.Endpoint = stripPort(endpoint)
	s.HasServerAssignment = true
	return s
}

// WithStateUpdate applies a voice state assignment for the local user.
func (s ConnectionState) WithStateUpdate(guildID, channelID, sessionID string) ConnectionState {
	s.GuildID = guildID
	s.ChannelID = channelID
	s.SessionID = sessionID
	s.HasStateAssignment = true
	return s
}

// WithVoiceReady records the media parameters of the READY opcode.
func (s ConnectionState) WithVoiceReady(ssrc uint32, ip string, port int) ConnectionState {
	s.SSRC = ssrc
	s.MediaIP = ip
	s.MediaPort = port
	return s
}

// WithTargetChannel points the state at a channel without marking
// either assignment as received.
func (s ConnectionState) WithTargetChannel(guildID, channelID string) ConnectionState {
	s.GuildID = guildID
	s.ChannelID = channelID
	return s
}

// IsReadyToConnect reports whether both assignments have been received
// and every field needed by IDENTIFY is present.
func (s ConnectionState) IsReadyToConnect() bool {
	return s.GuildID != "" &&
		s.Token != "" &&
		s.SessionID != "" &&
		s.Endpoint != "" &&
		s.HasServerAssignment &&
		s.HasStateAssignment
}

// Equal compares everything except the media address, which only
// changes after a connection was already made.
func (s ConnectionState) Equal(o ConnectionState) bool {
	return s.GuildID == o.GuildID &&
		s.ChannelID == o.ChannelID &&
		s.SessionID == o.SessionID &&
		s.Token == o.Token &&
		s.Endpoint == o.Endpoint &&
		s.SSRC == o.SSRC &&
		s.HasServerAssignment == o.HasServerAssignment &&
		s.HasStateAssignment == o.HasStateAssignment
}

func (s ConnectionState) String() string {
	return fmt.Sprintf(
		"ConnectionState{guild=%s, channel=%s, session=%s, token=%s, endpoint=%s, ssrc=%d, serverUpdate=%t, stateUpdate=%t}",
		orNull(s.GuildID),
		orNull(s.ChannelID),
		redact(s.SessionID),
		redact(s.Token),
		orNull(s.Endpoint),
		s.SSRC,
		s.HasServerAssignment,
		s.HasStateAssignment,
	)
}

// LogValue keeps the session id and token out of logs.
func (s ConnectionState) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("guildID", s.GuildID),
		slog.String("channelID", s.ChannelID),
		slog.String("sessionID", redact(s.SessionID)),
		slog.String("token", redact(s.Token)),
		slog.String("endpoint", s.Endpoint),
		slog.Any("ssrc", s.SSRC),
		slog.Bool("hasServerAssignment", s.HasServerAssignment),
		slog.Bool("hasStateAssignment", s.HasStateAssignment),
	)
}

var _ slog.LogValuer = ConnectionState{}

func stripPort(endpoint string) string {
	host, _, _ := strings.Cut(endpoint, ":")
	return host
}

func redact(v string) string {
	if v == "" {
		return "null"
	}
	return "***"
}

func orNull(v string) string {
	if v == "" {
		return "null"
	}
	return v
}
