package presenters

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voicelink/internal/voice"
)

// ComponentIDModeSelect is the custom id of the voice mode select menu.
const ComponentIDModeSelect = "voice_mode_select"

var modeSelectMinValues = 1

func BuildMessageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "_none_"
	}
	return s
}

// BuildStatusResponse renders the client's debug status. Only the caller
// sees it.
func BuildStatusResponse(status voice.Status) *discordgo.InteractionResponse {
	var b strings.Builder
	b.WriteString("**Voice status**\n")
	fmt.Fprintf(&b, "Connected: %s (connecting: %s, initialized: %s)\n",
		yesNo(status.Connected), yesNo(status.Connecting), yesNo(status.Initialized))
	fmt.Fprintf(&b, "State: `%s`\n", status.State)
	fmt.Fprintf(&b, "Websocket open: %s, UDP closed: %s, streamer ready: %s\n",
		yesNo(status.WebsocketOpen), yesNo(status.UDPClosed), yesNo(status.StreamerReady))
	fmt.Fprintf(&b, "Voice mode: %s (registered: %s)\n",
		orNone(status.ActiveVoiceMode), orNone(strings.Join(status.VoiceModes, ", ")))
	fmt.Fprintf(&b, "Video mode: %s (registered: %s)\n",
		orNone(status.ActiveVideoMode), orNone(strings.Join(status.VideoModes, ", ")))

	lastAck := "never"
	if !status.LastHeartbeatAck.IsZero() {
		lastAck = status.LastHeartbeatAck.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "Heartbeats sent: %d, last ack: %s\n", status.HeartbeatsSent, lastAck)
	fmt.Fprintf(&b, "Reconnects scheduled: %d", status.ReconnectsScheduled)

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: b.String(),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// BuildModeSelectResponse offers the registered voice modes as a select menu.
func BuildModeSelectResponse(modes []string, active string) *discordgo.InteractionResponse {
	if len(modes) == 0 {
		return BuildMessageResponse("No voice modes registered")
	}

	options := make([]discordgo.SelectMenuOption, 0, len(modes))
	for _, mode := range modes {
		options = append(options, discordgo.SelectMenuOption{
			Label:   mode,
			Value:   mode,
			Default: mode == active,
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    ComponentIDModeSelect,
		Placeholder: "Select a voice mode",
		MinValues:   &modeSelectMinValues,
		MaxValues:   1,
		Options:     options,
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "**Voice modes** _(select one to switch)_",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{menu},
				},
			},
		},
	}
}
