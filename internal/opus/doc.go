// Package opus reads, writes, and produces Opus frames for voice playback.
//
// Frames are stored in a minimal binary format: concatenated length-prefixed
// frames ([uint16 LE length][opus bytes]). No headers, no metadata.
//
// FrameReader reads that format back and OggReader pulls frames straight out
// of an Ogg Opus stream. Encode transcodes any audio via FFmpeg into the
// length-prefixed format. Silence and Loop are synthetic sources.
package opus
