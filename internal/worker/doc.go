// Package worker carries voice commands between processes and applies
// them to a voice client.
//
// Commands are published to a Redis stream and consumed by a consumer
// group, so any number of bots can share one queue. Users and guilds on
// the blacklist are refused before a command reaches the client.
package worker
