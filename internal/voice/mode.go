package voice

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Mode is the lifecycle shared by voice and video plugins.
type Mode interface {
	// Start begins playing source. The meaning of source is up to the mode.
	Start(source string) error
	Stop() error
	// Initialize is called once the media session is established.
	Initialize() error
	JoinChannel(guildID, channelID string) error
	// Shutdown is called when an initialized session is torn down.
	Shutdown() error
	IsActive() bool
}

// VoiceMode is a Mode that sends audio through a Streamer.
type VoiceMode interface {
	Mode
	SetStreamer(streamer *Streamer)
}

// VideoMode has no media path of its own yet.
type VideoMode interface {
	Mode
}

// Registry holds the modes of one kind and which one is active.
// Mode callbacks run while the registry lock is held, so modes
// must not call back into the registry.
type Registry[M Mode] struct {
	kind string

	mu     sync.Mutex
	modes  map[string]M
	active string
}

func NewRegistry[M Mode](kind string) *Registry[M] {
	return &Registry[M]{
		kind:  kind,
		modes: make(map[string]M),
	}
}

// Register adds mode under id. An instance already registered under id is
// stopped and replaced; the active id is left unchanged.
func (r *Registry[M]) Register(id string, mode M) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.modes[id]; ok {
		slog.Info("replacing mode", "kind", r.kind, "mode", id)
		r.stopLocked(id, existing)
	}
	r.modes[id] = mode
	slog.Info("registered mode", "kind", r.kind, "mode", id, "type", fmt.Sprintf("%T", mode))
}

// Unregister removes and stops the mode. It reports whether id was registered.
func (r *Registry[M]) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode, ok := r.modes[id]
	if !ok {
		return false
	}
	delete(r.modes, id)
	if r.active == id {
		r.active = ""
	}
	r.stopLocked(id, mode)
	slog.Info("unregistered mode", "kind", r.kind, "mode", id)
	return true
}

// SwitchTo makes id the active mode. Switching to the active id does
// nothing. The previous mode is stopped first; stop failures are logged.
// activate runs against the new mode and, if it fails, the previous id is
// restored without restarting the previous mode.
func (r *Registry[M]) SwitchTo(id string, activate func(M) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := r.modes[id]
	if !ok {
		return &ModeNotFoundError{Kind: r.kind, ID: id}
	}

	prevID := r.active
	if prevID == id {
		slog.Debug("mode already active", "kind", r.kind, "mode", id)
		return nil
	}

	if prev, ok := r.modes[prevID]; ok && prevID != "" {
		r.stopLocked(prevID, prev)
	}

	r.active = id
	if activate != nil {
		if err := Guard(func() error { return activate(next) }); err != nil {
			r.active = prevID
			return fmt.Errorf("failed to activate %s mode %s: %w", r.kind, id, err)
		}
	}

	slog.Info("switched mode", "kind", r.kind, "from", prevID, "to", id)
	return nil
}

// Active returns the active mode, if there is one.
func (r *Registry[M]) Active() (string, M, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero M
	if r.active == "" {
		return "", zero, false
	}
	mode, ok := r.modes[r.active]
	if !ok {
		return "", zero, false
	}
	return r.active, mode, true
}

func (r *Registry[M]) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ClearActive forgets the active id without calling the mode.
func (r *Registry[M]) ClearActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
}

// IDs returns the registered ids in sorted order.
func (r *Registry[M]) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.modes))
	for id := range r.modes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// WithActive runs fn against the active mode under the registry lock.
// It reports whether there was an active mode.
func (r *Registry[M]) WithActive(fn func(id string, mode M) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode, ok := r.modes[r.active]
	if !ok || r.active == "" {
		return false, nil
	}
	return true, Guard(func() error { return fn(r.active, mode) })
}

func (r *Registry[M]) stopLocked(id string, mode M) {
	if err := Guard(mode.Stop); err != nil {
		slog.Error("failed to stop mode", "kind", r.kind, "mode", id, "error", err)
	}
}

// Guard runs fn and turns a panic into an error.
func Guard(fn func() error) error {
	var err error
	if recovered := panics.Try(func() { err = fn() }); recovered != nil {
		return recovered.AsError()
	}
	return err
}
