package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/glizzus/voicelink/internal/opus"
	"github.com/glizzus/voicelink/internal/voice"
)

var ErrNoStreamer = errors.New("no media session to play into")

// Speaker toggles the speaking indicator of the voice session.
type Speaker interface {
	SetSpeaking(flags ...voice.SpeakingFlag) error
}

// Player is a voice mode that plays one track at a time.
type Player struct {
	name    string
	speaker Speaker
	opener  Opener

	mu        sync.Mutex
	streamer  *voice.Streamer
	track     *track
	guildID   string
	channelID string
}

type track struct {
	source string
	stream *voice.Stream
	cancel context.CancelFunc
}

// New returns the file player.
func New(speaker Speaker, opener Opener) *Player {
	return &Player{name: "file", speaker: speaker, opener: opener}
}

// NewSilence returns a mode that streams Opus silence until stopped,
// whatever source it is started with.
func NewSilence(speaker Speaker) *Player {
	return &Player{name: "silence", speaker: speaker, opener: silenceOpener{}}
}

var _ voice.VoiceMode = (*Player)(nil)

func (p *Player) SetStreamer(streamer *voice.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamer = streamer
}

// Start replaces the current track with source.
func (p *Player) Start(source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return ErrNoStreamer
	}
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	frames, closer, err := p.opener.Open(ctx, source)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open %q: %w", source, err)
	}

	if err := p.speaker.SetSpeaking(voice.SpeakingMicrophone); err != nil {
		slog.Warn("failed to set speaking", "mode", p.name, "error", err)
	}

	t := &track{source: source, stream: p.streamer.Start(frames), cancel: cancel}
	p.track = t
	slog.Info("playing", "mode", p.name, "source", source, "guildID", p.guildID, "channelID", p.channelID)

	go p.finish(t, closer)
	return nil
}

// finish releases the track once its stream ends and clears speaking
// unless another track already took over.
func (p *Player) finish(t *track, closer io.Closer) {
	<-t.stream.Done()
	t.cancel()
	if err := closer.Close(); err != nil {
		slog.Debug("failed to close source", "mode", p.name, "source", t.source, "error", err)
	}

	p.mu.Lock()
	current := p.track == t
	if current {
		p.track = nil
	}
	p.mu.Unlock()

	if err := t.stream.Err(); err != nil {
		slog.Error("playback failed", "mode", p.name, "source", t.source, "error", err)
	} else {
		slog.Info("playback finished", "mode", p.name, "source", t.source, "packets", t.stream.Sent())
	}

	if current {
		if err := p.speaker.SetSpeaking(); err != nil && !errors.Is(err, voice.ErrNotConnected) {
			slog.Warn("failed to clear speaking", "mode", p.name, "error", err)
		}
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.track == nil {
		return
	}
	p.track.stream.Stop()
	p.track.cancel()
}

func (p *Player) Initialize() error {
	slog.Debug("media session ready", "mode", p.name)
	return nil
}

func (p *Player) JoinChannel(guildID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guildID, p.channelID = guildID, channelID
	return nil
}

// Shutdown stops playback and drops the media session.
func (p *Player) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.streamer = nil
	p.guildID, p.channelID = "", ""
	return nil
}

// IsActive reports whether a track is playing.
func (p *Player) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == nil {
		return false
	}
	select {
	case <-p.track.stream.Done():
		return false
	default:
		return true
	}
}

// Playing returns the source of the current track.
func (p *Player) Playing() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.track == nil {
		return "", false
	}
	return p.track.source, true
}

type silenceOpener struct{}

func (silenceOpener) Open(ctx context.Context, source string) (opus.Source, io.Closer, error) {
	return opus.Silence(-1), io.NopCloser(nil), nil
}
