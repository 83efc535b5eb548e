package stream

import "fmt"

// Type classifies a stream for prioritization.
type Type int

const (
	// TypeAudio is interactive voice.
	TypeAudio Type = iota
	// TypeVideo is camera video.
	TypeVideo
	// TypeScreenShare is desktop capture.
	TypeScreenShare
	// TypeData is an application data channel.
	TypeData
)

// Priority returns the scheduling rank of the stream type. Lower values
// are scheduled first: Audio(1) < Video(2) < ScreenShare(3) < Data(4).
func (t Type) Priority() uint8 {
	switch t {
	case TypeAudio:
		return 1
	case TypeVideo:
		return 2
	case TypeScreenShare:
		return 3
	default:
		return 4
	}
}

// IsRealtime reports whether the stream carries latency-sensitive
// media. Data channels are the only non-realtime type.
func (t Type) IsRealtime() bool {
	switch t {
	case TypeAudio, TypeVideo, TypeScreenShare:
		return true
	default:
		return false
	}
}

// String returns the stream type name.
func (t Type) String() string {
	switch t {
	case TypeAudio:
		return "audio"
	case TypeVideo:
		return "video"
	case TypeScreenShare:
		return "screenshare"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}
