package voice_test

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glizzus/voicelink/internal/voice"
	"golang.org/x/crypto/nacl/secretbox"
)

type sliceSource struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *sliceSource) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

type endlessSource struct{}

func (endlessSource) ReadFrame() ([]byte, error) {
	return []byte{0xF8, 0xFF, 0xFE}, nil
}

type mediaHarness struct {
	receiver  *net.UDPConn
	sender    *net.UDPConn
	connected *atomic.Bool
	key       *[32]byte
}

func newMediaHarness(t *testing.T) *mediaHarness {
	t.Helper()
	receiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { receiver.Close() })

	sender, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { sender.Close() })

	connected := &atomic.Bool{}
	connected.Store(true)
	return &mediaHarness{receiver: receiver, sender: sender, connected: connected, key: testKey()}
}

func (h *mediaHarness) streamer(t *testing.T, interval time.Duration) *voice.Streamer {
	t.Helper()
	p, err := voice.NewPacketizer(77, h.key, 0, 4242)
	if err != nil {
		t.Fatalf("NewPacketizer() returned error: %v", err)
	}
	return voice.NewStreamer(h.sender, h.receiver.LocalAddr(), p, h.connected.Load, interval)
}

func waitDone(t *testing.T, s *voice.Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not finish")
	}
}

func TestStreamerSendsEncryptedPackets(t *testing.T) {
	h := newMediaHarness(t)
	streamer := h.streamer(t, time.Millisecond)

	frames := [][]byte{{1, 1}, {2, 2, 2}, {3}}
	stream := streamer.Start(&sliceSource{frames: frames})
	waitDone(t, stream)

	if stream.Err() != nil {
		t.Fatalf("stream ended with error: %v", stream.Err())
	}
	if stream.Sent() != 3 {
		t.Fatalf("Sent() = %d; want 3", stream.Sent())
	}

	h.receiver.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1500)
	for i, want := range frames {
		n, _, err := h.receiver.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("failed to read packet %d: %v", i, err)
		}
		packet := buf[:n]

		seq := uint16(packet[2])<<8 | uint16(packet[3])
		if seq != uint16(i) {
			t.Errorf("packet %d sequence = %d; want %d", i, seq, i)
		}

		nonce := voice.Nonce(packet[:12])
		opened, ok := secretbox.Open(nil, packet[12:], &nonce, h.key)
		if !ok {
			t.Fatalf("packet %d failed to decrypt", i)
		}
		if string(opened) != string(want) {
			t.Errorf("packet %d payload = % x; want % x", i, opened, want)
		}
	}
}

func TestStreamerDropsEmptyFrames(t *testing.T) {
	h := newMediaHarness(t)
	streamer := h.streamer(t, 0)

	stream := streamer.Start(&sliceSource{frames: [][]byte{{1}, {}, {2}}})
	waitDone(t, stream)

	if stream.Sent() != 2 || stream.Dropped() != 1 {
		t.Errorf("Sent() = %d, Dropped() = %d; want 2 and 1", stream.Sent(), stream.Dropped())
	}
}

func TestStreamerStopsWhenDisconnected(t *testing.T) {
	h := newMediaHarness(t)
	streamer := h.streamer(t, time.Millisecond)

	stream := streamer.Start(endlessSource{})
	time.Sleep(20 * time.Millisecond)
	h.connected.Store(false)

	waitDone(t, stream)
	if streamer.Active() {
		t.Errorf("Active() = true after the connection dropped")
	}
}

func TestStreamStopIsIdempotent(t *testing.T) {
	h := newMediaHarness(t)
	streamer := h.streamer(t, time.Millisecond)

	stream := streamer.Start(endlessSource{})
	stream.Stop()
	stream.Stop()
	waitDone(t, stream)

	streamer.Stop()
	streamer.Stop()

	if streamer.Active() {
		t.Errorf("Active() = true after Stop")
	}
	if stream.Err() != nil {
		t.Errorf("Err() = %v after Stop; want nil", stream.Err())
	}

	// Stopping after natural completion is also harmless.
	done := streamer.Start(&sliceSource{frames: [][]byte{{1}}})
	waitDone(t, done)
	done.Stop()
	streamer.Stop()
}

func TestStreamerStartReplacesRunningStream(t *testing.T) {
	h := newMediaHarness(t)
	streamer := h.streamer(t, time.Millisecond)

	first := streamer.Start(endlessSource{})
	second := streamer.Start(&sliceSource{frames: [][]byte{{9}}})

	waitDone(t, first)
	waitDone(t, second)
}
