package voice

import (
	"errors"
	"fmt"
)

var (
	ErrConnectInProgress = errors.New("voice connection already in progress")
	ErrConnectAbandoned  = errors.New("voice connection attempt was abandoned")
	ErrNotConnected      = errors.New("voice connection is not established")
	ErrNoSSRC            = errors.New("voice connection has no SSRC yet")
	ErrClientClosed      = errors.New("voice client is closed")
	ErrEmptyFrame        = errors.New("opus frame is empty")
	ErrInvalidSecretKey  = errors.New("secret key must be 32 bytes")
)

// ModeNotFoundError is returned when a mode id is not registered
// or when an operation needs an active mode and there is none.
type ModeNotFoundError struct {
	Kind string
	ID   string
}

func (e *ModeNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no active %s mode", e.Kind)
	}
	return fmt.Sprintf("%s mode not found: %s", e.Kind, e.ID)
}

var _ error = (*ModeNotFoundError)(nil)
