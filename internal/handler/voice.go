package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voicelink/internal/presenters"
	"github.com/glizzus/voicelink/internal/util"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/glizzus/voicelink/internal/voicestate"
	"github.com/glizzus/voicelink/internal/worker"
)

// VoiceController is what the voice flows need from voice.Client.
type VoiceController interface {
	worker.Controller
	DebugStatus() voice.Status
	RegisteredVoiceModes() []string
}

var _ VoiceController = (*voice.Client)(nil)

// GuildLookup lists a guild's channels and who is in which voice channel.
type GuildLookup interface {
	GuildVoice(guildID string) ([]*discordgo.Channel, []*discordgo.VoiceState, error)
}

// SessionGuildLookup answers from the session's state cache, falling back
// to the REST API for channels.
type SessionGuildLookup struct {
	Session *discordgo.Session
}

func (l SessionGuildLookup) GuildVoice(guildID string) ([]*discordgo.Channel, []*discordgo.VoiceState, error) {
	guild, err := l.Session.State.Guild(guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get guild %s from state: %w", guildID, err)
	}
	channels := guild.Channels
	if len(channels) == 0 {
		channels, err = l.Session.GuildChannels(guildID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get guild channels: %w", err)
		}
	}
	return channels, guild.VoiceStates, nil
}

// VoiceFlows are the slash commands that drive the voice client.
type VoiceFlows struct {
	Controller  VoiceController
	States      voicestate.Store
	Guilds      GuildLookup
	JoinTimeout time.Duration
}

// Register adds every voice flow and the ping flow to router.
func (v *VoiceFlows) Register(router *Router) {
	router.RegisterFlow(PingFlow)
	router.RegisterFlow(&Flow{ID: "join", Matcher: CommandMatcher("join"), Handler: v.join})
	router.RegisterFlow(&Flow{ID: "leave", Matcher: CommandMatcher("leave"), Handler: v.leave})
	router.RegisterFlow(&Flow{ID: "play", Matcher: CommandMatcher("play"), Handler: v.play})
	router.RegisterFlow(&Flow{ID: "stop", Matcher: CommandMatcher("stop"), Handler: v.stop})
	router.RegisterFlow(&Flow{ID: "mode", Matcher: CommandMatcher("mode"), Handler: v.mode})
	router.RegisterFlow(&Flow{ID: "mode-select", Matcher: ComponentMatcher(presenters.ComponentIDModeSelect), Handler: v.modeSelect})
	router.RegisterFlow(&Flow{ID: "status", Matcher: CommandMatcher("status"), Handler: v.status})
}

func optionsByName(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, option := range i.ApplicationCommandData().Options {
		options[option.Name] = option
	}
	return options
}

func (v *VoiceFlows) execute(ctx context.Context, cmd worker.VoiceCommand) error {
	return userFacing(worker.Execute(ctx, v.Controller, cmd))
}

// userFacing turns errors the caller can act on into a UserError.
func userFacing(err error) error {
	if err == nil {
		return nil
	}
	var notFound *voice.ModeNotFoundError
	switch {
	case errors.Is(err, voice.ErrNotConnected):
		return &UserError{Message: "I'm not connected to a voice channel. Use /join first."}
	case errors.As(err, &notFound):
		if notFound.ID == "" {
			return &UserError{Message: "No voice mode is active."}
		}
		return userErrorf("Unknown voice mode %q.", notFound.ID)
	case errors.Is(err, worker.ErrInvalidCommand):
		return &UserError{Message: err.Error()}
	}
	return err
}

// resolveChannel picks the channel to join: the option, then the
// requester's current channel, then the busiest voice channel.
func (v *VoiceFlows) resolveChannel(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	if option, ok := optionsByName(i)["channel"]; ok {
		return option.ChannelValue(nil).ID, nil
	}

	if v.States != nil {
		channelID, ok, err := v.States.Lookup(ctx, RequesterID(i))
		if err != nil {
			return "", err
		}
		if ok {
			return channelID, nil
		}
	}

	if v.Guilds != nil {
		channels, states, err := v.Guilds.GuildVoice(i.GuildID)
		if err != nil {
			return "", err
		}
		if channel := MaxAttendedChannel(channels, states); channel != nil {
			return channel.ID, nil
		}
	}

	return "", &UserError{Message: "Join a voice channel or pick one with the channel option."}
}

func (v *VoiceFlows) join(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	channelID, err := v.resolveChannel(fc.Context, i)
	if err != nil {
		return err
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return fmt.Errorf("failed to defer join response: %w", err)
	}

	ctx := fc.Context
	if v.JoinTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.JoinTimeout)
		defer cancel()
	}

	content := fmt.Sprintf("Joined <#%s>", channelID)
	err = worker.Execute(ctx, v.Controller, worker.VoiceCommand{
		ID:          fc.InstanceID,
		Action:      worker.ActionJoin,
		GuildID:     i.GuildID,
		ChannelID:   channelID,
		RequestedBy: RequesterID(i),
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fc.Logger.Warn("join timed out", "channelID", channelID, "error", err)
		content = fmt.Sprintf("Timed out joining <#%s>", channelID)
	case err != nil:
		fc.Logger.Error("join failed", "channelID", channelID, "error", err)
		content = fmt.Sprintf("Failed to join <#%s>", channelID)
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		return fmt.Errorf("failed to edit join response: %w", err)
	}
	return nil
}

func (v *VoiceFlows) leave(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	err := v.execute(fc.Context, worker.VoiceCommand{
		ID:          fc.InstanceID,
		Action:      worker.ActionLeave,
		GuildID:     i.GuildID,
		RequestedBy: RequesterID(i),
	})
	if err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Left the voice channel"))
}

func playSource(i *discordgo.InteractionCreate) (string, error) {
	options := optionsByName(i)
	if option, ok := options["source"]; ok && option.StringValue() != "" {
		return option.StringValue(), nil
	}
	if _, ok := options["file"]; ok {
		resolved := i.ApplicationCommandData().Resolved
		if resolved == nil {
			return "", &UserError{Message: "The attached file could not be read."}
		}
		attachment, err := util.GetOne(resolved.Attachments)
		if err != nil {
			return "", &UserError{Message: "Attach exactly one file."}
		}
		return attachment.URL, nil
	}
	return "", &UserError{Message: "Give a source or attach a file to play."}
}

func (v *VoiceFlows) play(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	source, err := playSource(i)
	if err != nil {
		return err
	}

	err = v.execute(fc.Context, worker.VoiceCommand{
		ID:          fc.InstanceID,
		Action:      worker.ActionPlay,
		GuildID:     i.GuildID,
		Source:      source,
		RequestedBy: RequesterID(i),
	})
	if err != nil {
		return err
	}
	fc.Logger.Info("playing", "source", source)
	return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Now playing"))
}

func (v *VoiceFlows) stop(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	err := v.execute(fc.Context, worker.VoiceCommand{
		ID:          fc.InstanceID,
		Action:      worker.ActionStop,
		GuildID:     i.GuildID,
		RequestedBy: RequesterID(i),
	})
	if err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Stopped"))
}

func (v *VoiceFlows) switchMode(fc *FlowContext, i *discordgo.InteractionCreate, mode string) error {
	return v.execute(fc.Context, worker.VoiceCommand{
		ID:          fc.InstanceID,
		Action:      worker.ActionMode,
		GuildID:     i.GuildID,
		Mode:        mode,
		RequestedBy: RequesterID(i),
	})
}

func (v *VoiceFlows) mode(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	option, ok := optionsByName(i)["name"]
	if !ok || option.StringValue() == "" {
		response := presenters.BuildModeSelectResponse(v.Controller.RegisteredVoiceModes(), v.Controller.ActiveVoiceModeID())
		return s.InteractionRespond(i.Interaction, response)
	}

	if err := v.switchMode(fc, i, option.StringValue()); err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Switched to "+option.StringValue()))
}

func (v *VoiceFlows) modeSelect(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	values := i.MessageComponentData().Values
	if len(values) != 1 {
		return &UserError{Message: "Select exactly one mode."}
	}

	if err := v.switchMode(fc, i, values[0]); err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Switched to " + values[0],
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (v *VoiceFlows) status(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	return s.InteractionRespond(i.Interaction, presenters.BuildStatusResponse(v.Controller.DebugStatus()))
}
