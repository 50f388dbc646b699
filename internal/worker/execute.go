package worker

import (
	"context"
	"errors"
	"fmt"
)

// DefaultVoiceMode is switched to when a command needs a voice mode and
// none is active.
const DefaultVoiceMode = "file"

var ErrBlacklisted = errors.New("requester is blacklisted")

// Controller is the part of voice.Client commands act on.
type Controller interface {
	JoinAndConnect(ctx context.Context, guildID, channelID string) error
	LeaveVoice(guildID string) error
	Play(source string) error
	Stop()
	SwitchToVoiceMode(id string) error
	ActiveVoiceModeID() string
}

// Execute applies cmd to ctl. ctx bounds a join.
func Execute(ctx context.Context, ctl Controller, cmd VoiceCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	switch cmd.Action {
	case ActionJoin:
		if err := ctl.JoinAndConnect(ctx, cmd.GuildID, cmd.ChannelID); err != nil {
			return fmt.Errorf("failed to join %s: %w", cmd.ChannelID, err)
		}
		return ensureMode(ctl, cmd.Mode)
	case ActionLeave:
		return ctl.LeaveVoice(cmd.GuildID)
	case ActionPlay:
		if err := ensureMode(ctl, cmd.Mode); err != nil {
			return err
		}
		return ctl.Play(cmd.Source)
	case ActionStop:
		ctl.Stop()
		return nil
	case ActionMode:
		return ctl.SwitchToVoiceMode(cmd.Mode)
	}
	return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
}

// ensureMode switches to mode, or to the default when mode is empty and
// nothing is active.
func ensureMode(ctl Controller, mode string) error {
	if mode == "" {
		if ctl.ActiveVoiceModeID() != "" {
			return nil
		}
		mode = DefaultVoiceMode
	}
	return ctl.SwitchToVoiceMode(mode)
}

// Authorize refuses commands from blacklisted users or guilds.
// A nil blacklist allows everything.
func Authorize(ctx context.Context, blacklist Blacklist, cmd VoiceCommand) error {
	if blacklist == nil {
		return nil
	}
	blocked, err := blacklist.IsBlacklisted(ctx, cmd.RequestedBy, cmd.GuildID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlacklisted
	}
	return nil
}
