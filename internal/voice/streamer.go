package voice

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// FrameSource yields Opus frames one at a time.
// io.EOF ends the stream cleanly.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Stream is one run of frames through a Streamer.
type Stream struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	sent    atomic.Uint64
	dropped atomic.Uint64
	err     error
}

func newStream() *Stream {
	return &Stream{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Stop asks the stream to end. It is safe to call any number of times,
// including after the stream ended on its own.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the stream has stopped sending.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Sent is the number of packets written to the socket.
func (s *Stream) Sent() uint64 {
	return s.sent.Load()
}

// Dropped is the number of frames that could not be packetized.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Err returns the error that ended the stream, if any.
// It is only meaningful after Done is closed.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Streamer sends encrypted RTP packets to the voice server over the
// session's UDP socket. At most one Stream runs at a time.
type Streamer struct {
	conn       net.PacketConn
	addr       net.Addr
	packetizer *Packetizer
	connected  func() bool
	interval   time.Duration

	mu      sync.Mutex
	current *Stream
}

// NewStreamer binds a media path. connected is checked before every frame;
// once it reports false the running stream ends. An interval of zero
// disables pacing.
func NewStreamer(conn net.PacketConn, addr net.Addr, packetizer *Packetizer, connected func() bool, interval time.Duration) *Streamer {
	return &Streamer{
		conn:       conn,
		addr:       addr,
		packetizer: packetizer,
		connected:  connected,
		interval:   interval,
	}
}

// Start replaces the running stream, if any, with one reading from frames.
func (s *Streamer) Start(frames FrameSource) *Stream {
	stream := newStream()

	s.mu.Lock()
	prev := s.current
	s.current = stream
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	go s.run(stream, frames)
	return stream
}

// Stop ends the running stream. Calling it with nothing running is a no-op.
func (s *Streamer) Stop() {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur != nil {
		cur.Stop()
	}
}

// Active reports whether a stream is currently running.
func (s *Streamer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	select {
	case <-s.current.done:
		return false
	default:
		return true
	}
}

// Addr is the destination of media packets.
func (s *Streamer) Addr() net.Addr {
	return s.addr
}

func (s *Streamer) run(stream *Stream, frames FrameSource) {
	defer func() {
		s.mu.Lock()
		if s.current == stream {
			s.current = nil
		}
		s.mu.Unlock()
		close(stream.done)
	}()

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if !s.connected() {
			slog.Debug("voice connection closed, ending stream")
			return
		}
		select {
		case <-stream.stop:
			return
		default:
		}

		frame, err := frames.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				stream.err = fmt.Errorf("failed to read frame: %w", err)
			}
			return
		}

		packet, err := s.packetizer.Packet(frame)
		if err != nil {
			stream.dropped.Add(1)
			slog.Error("dropping frame", "error", err)
			continue
		}

		if tick != nil {
			select {
			case <-stream.stop:
				return
			case <-tick:
			}
		}

		if _, err := s.conn.WriteTo(packet, s.addr); err != nil {
			stream.err = fmt.Errorf("failed to send packet: %w", err)
			return
		}
		stream.sent.Add(1)
	}
}
