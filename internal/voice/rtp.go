package voice

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	rtpHeaderSize  = 12
	rtpPayloadType = 0x78

	// FrameSamples is the timestamp step of one 20ms Opus frame at 48kHz.
	FrameSamples = 960
)

func rtpHeader(sequence uint16, timestamp, ssrc uint32) rtp.Header {
	return rtp.Header{
		Version:        2,
		PayloadType:    rtpPayloadType,
		SequenceNumber: sequence,
		Timestamp:      timestamp,
		SSRC:           ssrc,
	}
}

// MarshalHeader returns the 12 byte RTP header used for voice packets.
func MarshalHeader(sequence uint16, timestamp, ssrc uint32) ([]byte, error) {
	return rtpHeader(sequence, timestamp, ssrc).Marshal()
}

// Nonce pads an RTP header with zeros to the 24 byte secretbox nonce.
func Nonce(header []byte) [24]byte {
	var nonce [24]byte
	copy(nonce[:rtpHeaderSize], header)
	return nonce
}

// Packetizer turns Opus frames into encrypted RTP packets for one media
// session. Sequence and timestamp wrap around on overflow.
type Packetizer struct {
	mu        sync.Mutex
	ssrc      uint32
	key       *[32]byte
	sequence  uint16
	timestamp uint32
}

func NewPacketizer(ssrc uint32, key *[32]byte, sequence uint16, timestamp uint32) (*Packetizer, error) {
	if key == nil {
		return nil, ErrInvalidSecretKey
	}
	return &Packetizer{
		ssrc:      ssrc,
		key:       key,
		sequence:  sequence,
		timestamp: timestamp,
	}, nil
}

// Next reports the sequence and timestamp the next packet will carry.
func (p *Packetizer) Next() (uint16, uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequence, p.timestamp
}

// Packet seals frame behind a fresh RTP header. The counters advance even
// when the frame is rejected, so a dropped frame looks like packet loss
// to the receiver.
func (p *Packetizer) Packet(frame []byte) ([]byte, error) {
	p.mu.Lock()
	header := rtpHeader(p.sequence, p.timestamp, p.ssrc)
	p.sequence++
	p.timestamp += FrameSamples
	p.mu.Unlock()

	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	packet := make([]byte, rtpHeaderSize, rtpHeaderSize+len(frame)+secretbox.Overhead)
	if _, err := header.MarshalTo(packet); err != nil {
		return nil, fmt.Errorf("failed to marshal rtp header: %w", err)
	}

	nonce := Nonce(packet[:rtpHeaderSize])
	return secretbox.Seal(packet, frame, &nonce, p.key), nil
}
