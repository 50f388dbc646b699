package handler

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/voicestate"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)
type VoiceStateUpdateHandler = func(*discordgo.Session, *discordgo.VoiceStateUpdate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Bot is ready", "username", r.User.Username, "userID", r.User.ID)
}

// DiscordGateway drives the voice client from a discordgo session.
type DiscordGateway struct {
	session *discordgo.Session
}

func NewDiscordGateway(session *discordgo.Session) *DiscordGateway {
	return &DiscordGateway{session: session}
}

var _ voice.Gateway = (*DiscordGateway)(nil)

func (g *DiscordGateway) SelfID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// UpdateVoiceState sends the voice state update. An empty channelID leaves.
func (g *DiscordGateway) UpdateVoiceState(guildID, channelID string, mute, deaf bool) error {
	return g.session.ChannelVoiceJoinManual(guildID, channelID, mute, deaf)
}

func (g *DiscordGateway) OnServerAssignment(fn func(voice.ServerAssignment)) func() {
	return g.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.VoiceServerUpdate) {
		fn(ServerAssignmentFromEvent(ev))
	})
}

func (g *DiscordGateway) OnStateAssignment(fn func(voice.StateAssignment)) func() {
	return g.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.VoiceStateUpdate) {
		if assignment, ok := StateAssignmentFromEvent(ev); ok {
			fn(assignment)
		}
	})
}

func ServerAssignmentFromEvent(ev *discordgo.VoiceServerUpdate) voice.ServerAssignment {
	return voice.ServerAssignment{
		GuildID:  ev.GuildID,
		Token:    ev.Token,
		Endpoint: ev.Endpoint,
	}
}

func StateAssignmentFromEvent(ev *discordgo.VoiceStateUpdate) (voice.StateAssignment, bool) {
	if ev == nil || ev.VoiceState == nil {
		return voice.StateAssignment{}, false
	}
	return voice.StateAssignment{
		GuildID:   ev.GuildID,
		ChannelID: ev.ChannelID,
		SessionID: ev.SessionID,
		UserID:    ev.UserID,
	}, true
}

// RecordVoiceStates keeps store in sync with every user's voice channel.
func RecordVoiceStates(store voicestate.Store) VoiceStateUpdateHandler {
	return func(_ *discordgo.Session, ev *discordgo.VoiceStateUpdate) {
		if ev == nil || ev.VoiceState == nil || ev.UserID == "" {
			return
		}
		if err := store.Record(context.Background(), ev.UserID, ev.ChannelID); err != nil {
			slog.Warn("failed to record voice state", "userID", ev.UserID, "error", err)
		}
	}
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
	VoiceStateUpdate  VoiceStateUpdateHandler
}

// NewSession creates a session that receives guild and voice state events.
func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.InteractionCreate != nil {
		s.AddHandler(handlers.InteractionCreate)
	}
	if handlers.VoiceStateUpdate != nil {
		s.AddHandler(handlers.VoiceStateUpdate)
	}

	return s, nil
}

// MaxAttendedChannel returns the voice channel with the most users in it,
// counted from the guild's voice states. This returns nil if there are no
// voice channels.
func MaxAttendedChannel(channels []*discordgo.Channel, states []*discordgo.VoiceState) *discordgo.Channel {
	attendance := make(map[string]int)
	for _, state := range states {
		if state != nil && state.ChannelID != "" {
			attendance[state.ChannelID]++
		}
	}

	var maxAttendedChannel *discordgo.Channel
	maxAttended := -1

	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}

		if attendance[channel.ID] > maxAttended {
			maxAttendedChannel = channel
			maxAttended = attendance[channel.ID]
		}
	}

	return maxAttendedChannel
}
