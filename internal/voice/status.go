package voice

import "time"

// Status is a point-in-time view of the client for debugging.
type Status struct {
	Connected   bool   `json:"connected"`
	Connecting  bool   `json:"connecting"`
	Initialized bool   `json:"initialized"`
	State       string `json:"state"`

	WebsocketOpen bool `json:"websocket_open"`
	UDPClosed     bool `json:"udp_closed"`
	StreamerReady bool `json:"streamer_ready"`

	ActiveVoiceMode string   `json:"active_voice_mode"`
	ActiveVideoMode string   `json:"active_video_mode"`
	VoiceModes      []string `json:"voice_modes"`
	VideoModes      []string `json:"video_modes"`

	HeartbeatsSent      uint64    `json:"heartbeats_sent"`
	LastHeartbeatAck    time.Time `json:"last_heartbeat_ack,omitzero"`
	ReconnectsScheduled uint64    `json:"reconnects_scheduled"`
}
