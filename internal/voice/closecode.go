package voice

import (
	"errors"

	"github.com/gorilla/websocket"
)

// Close codes sent by the voice server.
const (
	CloseUnknownOpcode         = 4001
	CloseFailedToDecode        = 4002
	CloseNotAuthenticated      = 4003
	CloseAuthenticationFailed  = 4004
	CloseAlreadyAuthenticated  = 4005
	CloseSessionNoLongerValid  = 4006
	CloseSessionTimeout        = 4009
	CloseServerNotFound        = 4011
	CloseUnknownProtocol       = 4012
	CloseDisconnected          = 4014
	CloseVoiceServerCrashed    = 4015
	CloseUnknownEncryptionMode = 4016
)

// CloseAction is what the client does after the websocket closes.
type CloseAction int

const (
	// CloseActionNone cleans up and stays disconnected.
	CloseActionNone CloseAction = iota
	// CloseActionRejoin repeats the whole join, fetching fresh
	// server and state assignments.
	CloseActionRejoin
	// CloseActionReconnect reopens the websocket with the current state.
	CloseActionReconnect
)

func (a CloseAction) String() string {
	switch a {
	case CloseActionRejoin:
		return "rejoin"
	case CloseActionReconnect:
		return "reconnect"
	}
	return "none"
}

// ClassifyClose maps a close code onto a recovery action.
func ClassifyClose(code int) CloseAction {
	switch code {
	case websocket.CloseAbnormalClosure:
		return CloseActionRejoin
	case CloseVoiceServerCrashed:
		return CloseActionReconnect
	default:
		return CloseActionNone
	}
}

// CloseCodeFromError extracts the close code from a websocket read error.
// Errors that carry no close frame count as an abnormal closure.
func CloseCodeFromError(err error) (int, string) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Text
	}
	if err == nil {
		return websocket.CloseNormalClosure, ""
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
