package presenters_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voicelink/internal/presenters"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/google/go-cmp/cmp"
)

func TestBuildStatusResponse(t *testing.T) {
	tests := []struct {
		name   string
		status voice.Status
		want   string
	}{
		{
			name: "idle",
			status: voice.Status{
				UDPClosed: true,
				State:     "ConnectionState{}",
			},
			want: "**Voice status**\n" +
				"Connected: no (connecting: no, initialized: no)\n" +
				"State: `ConnectionState{}`\n" +
				"Websocket open: no, UDP closed: yes, streamer ready: no\n" +
				"Voice mode: _none_ (registered: _none_)\n" +
				"Video mode: _none_ (registered: _none_)\n" +
				"Heartbeats sent: 0, last ack: never\n" +
				"Reconnects scheduled: 0",
		},
		{
			name: "streaming",
			status: voice.Status{
				Connected:           true,
				Initialized:         true,
				State:               "ready",
				WebsocketOpen:       true,
				StreamerReady:       true,
				ActiveVoiceMode:     "file",
				VoiceModes:          []string{"file", "silence"},
				HeartbeatsSent:      12,
				LastHeartbeatAck:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
				ReconnectsScheduled: 1,
			},
			want: "**Voice status**\n" +
				"Connected: yes (connecting: no, initialized: yes)\n" +
				"State: `ready`\n" +
				"Websocket open: yes, UDP closed: no, streamer ready: yes\n" +
				"Voice mode: file (registered: file, silence)\n" +
				"Video mode: _none_ (registered: _none_)\n" +
				"Heartbeats sent: 12, last ack: 2024-05-01T12:00:00Z\n" +
				"Reconnects scheduled: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: tt.want,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			}
			got := presenters.BuildStatusResponse(tt.status)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("BuildStatusResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildModeSelectResponse(t *testing.T) {
	tests := []struct {
		name   string
		modes  []string
		active string
		want   *discordgo.InteractionResponse
	}{
		{
			name: "no modes",
			want: presenters.BuildMessageResponse("No voice modes registered"),
		},
		{
			name:   "active mode is the default",
			modes:  []string{"file", "silence"},
			active: "silence",
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "**Voice modes** _(select one to switch)_",
					Components: []discordgo.MessageComponent{
						discordgo.ActionsRow{
							Components: []discordgo.MessageComponent{
								discordgo.SelectMenu{
									CustomID:    presenters.ComponentIDModeSelect,
									Placeholder: "Select a voice mode",
									MinValues:   &[]int{1}[0],
									MaxValues:   1,
									Options: []discordgo.SelectMenuOption{
										{Label: "file", Value: "file"},
										{Label: "silence", Value: "silence", Default: true},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.BuildModeSelectResponse(tt.modes, tt.active)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildModeSelectResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
