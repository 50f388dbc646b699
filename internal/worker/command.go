package worker

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
	ActionPlay  Action = "play"
	ActionStop  Action = "stop"
	ActionMode  Action = "mode"
)

var ErrInvalidCommand = errors.New("invalid voice command")

// VoiceCommand is one remote instruction for a voice client.
type VoiceCommand struct {
	ID          string
	Action      Action
	GuildID     string
	ChannelID   string
	Source      string
	Mode        string
	RequestedBy string
}

// Validate checks that the fields the action needs are present.
func (c VoiceCommand) Validate() error {
	switch c.Action {
	case ActionJoin:
		if c.GuildID == "" || c.ChannelID == "" {
			return fmt.Errorf("%w: join needs a guild and a channel", ErrInvalidCommand)
		}
	case ActionLeave:
		if c.GuildID == "" {
			return fmt.Errorf("%w: leave needs a guild", ErrInvalidCommand)
		}
	case ActionPlay:
		if c.Source == "" {
			return fmt.Errorf("%w: play needs a source", ErrInvalidCommand)
		}
	case ActionMode:
		if c.Mode == "" {
			return fmt.Errorf("%w: mode needs a mode name", ErrInvalidCommand)
		}
	case ActionStop:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}
	return nil
}

func (c VoiceCommand) values() map[string]any {
	return map[string]any{
		"id":          c.ID,
		"action":      string(c.Action),
		"guildID":     c.GuildID,
		"channelID":   c.ChannelID,
		"source":      c.Source,
		"mode":        c.Mode,
		"requestedBy": c.RequestedBy,
	}
}

func commandFromValues(values map[string]any) VoiceCommand {
	get := func(key string) string {
		v, _ := values[key].(string)
		return v
	}
	return VoiceCommand{
		ID:          get("id"),
		Action:      Action(get("action")),
		GuildID:     get("guildID"),
		ChannelID:   get("channelID"),
		Source:      get("source"),
		Mode:        get("mode"),
		RequestedBy: get("requestedBy"),
	}
}
