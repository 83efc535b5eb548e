// Package call manages WebRTC-style call sessions: lifecycle state,
// SDP negotiation, and the signaling traffic that drives both.
package call

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/opd-ai/peercall/signaling"
)

// CallID uniquely identifies one call. Its string form doubles as the
// signaling session id.
type CallID uuid.UUID

// NewCallID generates a fresh random call id.
func NewCallID() CallID {
	return CallID(uuid.New())
}

// ParseCallID parses the canonical string form of a call id.
func ParseCallID(s string) (CallID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CallID{}, fmt.Errorf("parse call id %q: %w", s, err)
	}
	return CallID(id), nil
}

// String returns the canonical UUID form.
func (id CallID) String() string {
	return uuid.UUID(id).String()
}

// State is the lifecycle state of a call.
type State int

const (
	// StateCalling means the call is being set up: the caller is
	// waiting for an answer, or the callee has not accepted yet.
	StateCalling State = iota
	// StateConnected means both sides agreed and media can flow.
	StateConnected
	// StateFailed means the call was rejected or setup failed.
	StateFailed
)

// String returns a short state name for logs.
func (s State) String() string {
	switch s {
	case StateCalling:
		return "calling"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MediaConstraints selects which media kinds a call carries.
type MediaConstraints struct {
	Audio       bool
	Video       bool
	ScreenShare bool
}

// AudioOnly returns constraints for a voice call.
func AudioOnly() MediaConstraints {
	return MediaConstraints{Audio: true}
}

// VideoCall returns constraints for an audio plus video call.
func VideoCall() MediaConstraints {
	return MediaConstraints{Audio: true, Video: true}
}

// ScreenShareCall returns constraints for audio plus screen capture.
func ScreenShareCall() MediaConstraints {
	return MediaConstraints{Audio: true, ScreenShare: true}
}

// Validate rejects constraint sets that carry no media at all.
func (c MediaConstraints) Validate() error {
	if !c.Audio && !c.Video && !c.ScreenShare {
		return ErrInvalidConstraints
	}
	return nil
}

// EventKind classifies call events.
type EventKind int

const (
	// EventIncomingCall reports a remote offer awaiting accept or
	// reject.
	EventIncomingCall EventKind = iota
	// EventStateChanged reports a call state transition.
	EventStateChanged
	// EventCallEnded reports a call leaving the registry.
	EventCallEnded
)

// Event is one call lifecycle notification.
type Event[P signaling.PeerID] struct {
	Kind   EventKind
	CallID CallID
	Peer   P
	State  State
	Reason string
}
