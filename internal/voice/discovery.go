package voice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

// DiscoveryPacketSize is the size of both the discovery request and reply.
const DiscoveryPacketSize = 70

const (
	discoveryAddressStart = 4
	discoveryAddressEnd   = 68
)

var (
	ErrDiscoveryEmptyIP    = errors.New("discovery reply carried no address")
	ErrShortDiscoveryReply = errors.New("discovery reply is too short")
)

// BuildDiscoveryRequest returns the 70 byte request: the big endian SSRC
// followed by zeros.
func BuildDiscoveryRequest(ssrc uint32) []byte {
	packet := make([]byte, DiscoveryPacketSize)
	binary.BigEndian.PutUint32(packet, ssrc)
	return packet
}

// ParseDiscoveryReply extracts our external address from a discovery reply.
// The address is read up to the first NUL byte; the port is the big endian
// uint16 that follows the address field.
func ParseDiscoveryReply(reply []byte) (string, int, error) {
	if len(reply) < DiscoveryPacketSize {
		return "", 0, fmt.Errorf("%w: %d bytes", ErrShortDiscoveryReply, len(reply))
	}

	end := discoveryAddressStart
	for end < discoveryAddressEnd && reply[end] != 0 {
		end++
	}
	ip := string(reply[discoveryAddressStart:end])
	if ip == "" {
		return "", 0, ErrDiscoveryEmptyIP
	}

	port := binary.BigEndian.Uint16(reply[discoveryAddressEnd:DiscoveryPacketSize])
	return ip, int(port), nil
}

// Discover performs one IP discovery exchange over conn.
//
// The sender of the reply is not checked against addr, so a spoofed
// datagram that arrives first is accepted.
func Discover(conn net.PacketConn, addr net.Addr, ssrc uint32, timeout time.Duration) (string, int, error) {
	if _, err := conn.WriteTo(BuildDiscoveryRequest(ssrc), addr); err != nil {
		return "", 0, fmt.Errorf("failed to send discovery request: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", 0, fmt.Errorf("failed to set discovery deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	reply := make([]byte, DiscoveryPacketSize)
	n, _, err := conn.ReadFrom(reply)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read discovery reply: %w", err)
	}

	return ParseDiscoveryReply(reply[:n])
}
