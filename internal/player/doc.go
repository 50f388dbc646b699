// Package player provides the voice modes that play audio through a
// voice.Streamer: a file player and a silence generator.
//
// Sources are resolved by prefix. "blob:<key>" reads from blob storage,
// "http://" and "https://" are fetched, "loop:<source>" replays another
// source until stopped, and anything else is a local path. The extension
// decides the decoder: .ogg and .opus are demuxed, .frames and .dca are
// read as length-prefixed frames, everything else goes through FFmpeg.
package player
