package voice

import "strings"

// SpeakingFlag is a bit of the SPEAKING opcode's bitmask.
type SpeakingFlag int

const (
	SpeakingMicrophone SpeakingFlag = 1 << iota
	SpeakingSoundshare
	SpeakingVideo
)

// CombineSpeaking ORs flags together. No flags means not speaking.
func CombineSpeaking(flags ...SpeakingFlag) SpeakingFlag {
	var mask SpeakingFlag
	for _, f := range flags {
		mask |= f
	}
	return mask
}

func (f SpeakingFlag) String() string {
	if f == 0 {
		return "off"
	}
	var names []string
	if f&SpeakingMicrophone != 0 {
		names = append(names, "microphone")
	}
	if f&SpeakingSoundshare != 0 {
		names = append(names, "soundshare")
	}
	if f&SpeakingVideo != 0 {
		names = append(names, "video")
	}
	return strings.Join(names, "|")
}
