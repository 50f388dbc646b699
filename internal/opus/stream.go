package opus

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Source is anything that yields Opus frames until io.EOF.
type Source interface {
	ReadFrame() ([]byte, error)
}

// SilenceFrame is the three byte Opus frame that decodes to 20ms of silence.
var SilenceFrame = []byte{0xF8, 0xFF, 0xFE}

// SilenceSource yields silence frames.
type SilenceSource struct {
	remaining int
}

// Silence yields n silence frames, or silence forever when n is negative.
func Silence(n int) *SilenceSource {
	return &SilenceSource{remaining: n}
}

func (s *SilenceSource) ReadFrame() ([]byte, error) {
	if s.remaining == 0 {
		return nil, io.EOF
	}
	if s.remaining > 0 {
		s.remaining--
	}
	frame := make([]byte, len(SilenceFrame))
	copy(frame, SilenceFrame)
	return frame, nil
}

var ErrEmptyLoop = errors.New("looped source produced no frames")

// LoopSource replays the source returned by open each time it ends.
type LoopSource struct {
	open func() (Source, error)

	mu      sync.Mutex
	current Source
	fresh   bool
	plays   int
}

// Loop replays the sources produced by open until the caller stops reading.
// A source that ends without yielding a frame ends the loop with
// ErrEmptyLoop so it cannot spin.
func Loop(open func() (Source, error)) *LoopSource {
	return &LoopSource{open: open}
}

func (l *LoopSource) ReadFrame() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if l.current == nil {
			src, err := l.open()
			if err != nil {
				return nil, fmt.Errorf("failed to reopen looped source: %w", err)
			}
			l.current, l.fresh = src, true
			l.plays++
		}

		frame, err := l.current.ReadFrame()
		if err == nil {
			l.fresh = false
			return frame, nil
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}

		empty := l.fresh
		l.closeCurrent()
		if empty {
			return nil, ErrEmptyLoop
		}
	}
}

// Plays is the number of times the source was opened.
func (l *LoopSource) Plays() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.plays
}

// Close releases the current source if it is an io.Closer.
func (l *LoopSource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeCurrent()
}

func (l *LoopSource) closeCurrent() error {
	src := l.current
	l.current = nil
	if closer, ok := src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
