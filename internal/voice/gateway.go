package voice

// ServerAssignment is the primary gateway telling us which voice server
// handles a guild.
type ServerAssignment struct {
	GuildID  string
	Token    string
	Endpoint string
}

// StateAssignment is a voice state change of any user. An empty ChannelID
// means the user left voice.
type StateAssignment struct {
	GuildID   string
	ChannelID string
	SessionID string
	UserID    string
}

// Gateway is the primary event gateway the voice client rides on.
type Gateway interface {
	// SelfID is the user id of the connected bot.
	SelfID() string
	// UpdateVoiceState sends the voice state update opcode. An empty
	// channelID leaves voice in the guild.
	UpdateVoiceState(guildID, channelID string, mute, deaf bool) error
	// OnServerAssignment and OnStateAssignment subscribe to the two voice
	// events. They return a function that removes the subscription.
	OnServerAssignment(handler func(ServerAssignment)) func()
	OnStateAssignment(handler func(StateAssignment)) func()
}
