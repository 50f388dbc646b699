// Package voice implements a client for the Discord voice protocol.
//
// A Client correlates the two voice events of the primary gateway
// (server assignment and state assignment) into one ready signal, then
// drives the voice websocket handshake:
//
//	HELLO -> IDENTIFY -> READY -> UDP discovery -> SELECT_PROTOCOL -> SESSION_DESCRIPTION
//
// Once the session description arrives, a Streamer bound to the discovered
// UDP path turns Opus frames into XSalsa20-Poly1305 encrypted RTP packets.
// Playback itself is delegated to pluggable modes held in a Registry.
//
// Closing codes decide recovery: 1006 rejoins from scratch, 4015 reconnects
// the websocket with the current state, everything else stays down.
package voice
