package voice

import (
	"encoding/json"
	"fmt"
)

// Opcode identifies a message on the voice websocket.
type Opcode int

const (
	OpIdentify           Opcode = 0
	OpSelectProtocol     Opcode = 1
	OpReady              Opcode = 2
	OpHeartbeat          Opcode = 3
	OpSessionDescription Opcode = 4
	OpSpeaking           Opcode = 5
	OpHeartbeatAck       Opcode = 6
	OpHello              Opcode = 8
)

func (o Opcode) String() string {
	switch o {
	case OpIdentify:
		return "IDENTIFY"
	case OpSelectProtocol:
		return "SELECT_PROTOCOL"
	case OpReady:
		return "READY"
	case OpHeartbeat:
		return "HEARTBEAT"
	case OpSessionDescription:
		return "SESSION_DESCRIPTION"
	case OpSpeaking:
		return "SPEAKING"
	case OpHeartbeatAck:
		return "HEARTBEAT_ACK"
	case OpHello:
		return "HELLO"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(o))
}

// EncryptionMode is the only media encryption scheme this client speaks.
const EncryptionMode = "xsalsa20_poly1305"

// Event is an inbound voice websocket message. D is decoded lazily
// according to Op.
type Event struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

type outboundEvent struct {
	Op Opcode `json:"op"`
	D  any    `json:"d"`
}

type IdentifyPayload struct {
	ServerID  string `json:"server_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type SelectProtocolPayload struct {
	Protocol string             `json:"protocol"`
	Data     SelectProtocolData `json:"data"`
}

type SelectProtocolData struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Mode    string `json:"mode"`
}

type HelloPayload struct {
	HeartbeatInterval float64 `json:"heartbeat_interval"`
}

type ReadyPayload struct {
	SSRC  uint32   `json:"ssrc"`
	IP    string   `json:"ip"`
	Port  int      `json:"port"`
	Modes []string `json:"modes"`
}

type SessionDescriptionPayload struct {
	Mode      string `json:"mode"`
	SecretKey []int  `json:"secret_key"`
}

// Key converts the JSON number array into a secretbox key.
func (p SessionDescriptionPayload) Key() (*[32]byte, error) {
	if len(p.SecretKey) != 32 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSecretKey, len(p.SecretKey))
	}
	var key [32]byte
	for i, b := range p.SecretKey {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidSecretKey, i)
		}
		key[i] = byte(b)
	}
	return &key, nil
}

type SpeakingPayload struct {
	Speaking SpeakingFlag `json:"speaking"`
	Delay    int          `json:"delay"`
	SSRC     uint32       `json:"ssrc"`
}

// VoiceStateUpdate is the op 4 payload sent on the primary gateway.
// A nil ChannelID leaves the current channel.
type VoiceStateUpdate struct {
	GuildID   string  `json:"guild_id"`
	ChannelID *string `json:"channel_id"`
	SelfMute  bool    `json:"self_mute"`
	SelfDeaf  bool    `json:"self_deaf"`
}
