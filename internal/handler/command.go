package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
	{
		Name:        "join",
		Description: "Join a voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "channel",
				Type:         discordgo.ApplicationCommandOptionChannel,
				Description:  "The channel to join. Defaults to the one you are in.",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
				Required:     false,
			},
		},
	},
	{
		Name:        "leave",
		Description: "Leave the voice channel",
	},
	{
		Name:        "play",
		Description: "Play audio in the voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "source",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A URL, a blob:key or a loop:source to play.",
				Required:    false,
			},
			{
				Name:        "file",
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Description: "An audio file to play.",
				Required:    false,
			},
		},
	},
	{
		Name:        "stop",
		Description: "Stop playing",
	},
	{
		Name:        "mode",
		Description: "Switch the voice mode",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "name",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "The mode to switch to. Lists the modes if not provided.",
				Required:    false,
			},
		},
	},
	{
		Name:        "status",
		Description: "Show the voice connection status",
	},
}

func EstablishCommands(s *discordgo.Session, appID, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
