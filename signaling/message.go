package signaling

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"
)

// MaxSessionIDLength bounds the session identifier carried by every
// signaling message. IDs are short opaque strings (UUIDs in practice);
// anything longer is rejected at decode time.
const MaxSessionIDLength = 100

// Message type discriminators as they appear on the wire.
const (
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeIceCandidate = "icecandidate"
	TypeIceComplete  = "icecomplete"
	TypeBye          = "bye"
)

// Message is the closed set of signaling messages exchanged between
// peers. Every message carries a non-empty session identifier that
// correlates it with one negotiation.
type Message interface {
	// SessionID returns the session this message belongs to.
	// It is never empty for a validly constructed message.
	SessionID() string

	// Type returns the wire discriminator for this message.
	Type() string
}

// Offer proposes a new media session.
type Offer struct {
	Session  string          // session identifier
	SDP      string          // SDP offer text
	Endpoint *netip.AddrPort // optional direct media endpoint
}

// Answer responds to an Offer.
type Answer struct {
	Session  string
	SDP      string
	Endpoint *netip.AddrPort
}

// IceCandidate proposes a connectivity path for the session.
type IceCandidate struct {
	Session    string
	Candidate  string  // candidate line
	SDPMid     *string // optional media stream identification
	MLineIndex *uint16 // optional m-line index
}

// IceComplete signals that candidate gathering has finished.
type IceComplete struct {
	Session string
}

// Bye terminates the session.
type Bye struct {
	Session string
	Reason  *string // optional human-readable reason
}

// SessionID implements Message.
func (m Offer) SessionID() string { return m.Session }

// Type implements Message.
func (m Offer) Type() string { return TypeOffer }

// SessionID implements Message.
func (m Answer) SessionID() string { return m.Session }

// Type implements Message.
func (m Answer) Type() string { return TypeAnswer }

// SessionID implements Message.
func (m IceCandidate) SessionID() string { return m.Session }

// Type implements Message.
func (m IceCandidate) Type() string { return TypeIceCandidate }

// SessionID implements Message.
func (m IceComplete) SessionID() string { return m.Session }

// Type implements Message.
func (m IceComplete) Type() string { return TypeIceComplete }

// SessionID implements Message.
func (m Bye) SessionID() string { return m.Session }

// Type implements Message.
func (m Bye) Type() string { return TypeBye }

// validateSessionID enforces the session identifier invariant shared by
// all message variants.
func validateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidMessage)
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: session id length %d exceeds %d",
			ErrInvalidMessage, len(id), MaxSessionIDLength)
	}
	return nil
}

// Validate checks the message invariants without touching the wire.
func Validate(m Message) error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	return validateSessionID(m.SessionID())
}

// Wire envelopes. Each variant serializes as a flat record tagged with a
// lowercase "type" field. Optional fields are present as null when
// absent so encode/decode round-trips byte for byte.

type offerWire struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	SDP       string          `json:"sdp"`
	Endpoint  *netip.AddrPort `json:"quic_endpoint"`
}

type answerWire struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	SDP       string          `json:"sdp"`
	Endpoint  *netip.AddrPort `json:"quic_endpoint"`
}

type iceCandidateWire struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"session_id"`
	Candidate  string  `json:"candidate"`
	SDPMid     *string `json:"sdp_mid"`
	MLineIndex *uint16 `json:"sdp_mline_index"`
}

type iceCompleteWire struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type byeWire struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	Reason    *string `json:"reason"`
}

// Marshal encodes a message into its tagged wire form.
func Marshal(m Message) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	var wire any
	switch msg := m.(type) {
	case Offer:
		wire = offerWire{TypeOffer, msg.Session, msg.SDP, msg.Endpoint}
	case Answer:
		wire = answerWire{TypeAnswer, msg.Session, msg.SDP, msg.Endpoint}
	case IceCandidate:
		wire = iceCandidateWire{TypeIceCandidate, msg.Session, msg.Candidate, msg.SDPMid, msg.MLineIndex}
	case IceComplete:
		wire = iceCompleteWire{TypeIceComplete, msg.Session}
	case Bye:
		wire = byeWire{TypeBye, msg.Session, msg.Reason}
	default:
		return nil, fmt.Errorf("%w: unknown message type %T", ErrInvalidMessage, m)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type(), err)
	}
	return data, nil
}

// Unmarshal decodes a tagged wire record into its message variant.
// The session identifier invariant is enforced before the message is
// handed to the caller.
func Unmarshal(data []byte) (Message, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	var (
		msg Message
		err error
	)
	switch tag.Type {
	case TypeOffer:
		var w offerWire
		if err = json.Unmarshal(data, &w); err == nil {
			msg = Offer{w.SessionID, w.SDP, w.Endpoint}
		}
	case TypeAnswer:
		var w answerWire
		if err = json.Unmarshal(data, &w); err == nil {
			msg = Answer{w.SessionID, w.SDP, w.Endpoint}
		}
	case TypeIceCandidate:
		var w iceCandidateWire
		if err = json.Unmarshal(data, &w); err == nil {
			msg = IceCandidate{w.SessionID, w.Candidate, w.SDPMid, w.MLineIndex}
		}
	case TypeIceComplete:
		var w iceCompleteWire
		if err = json.Unmarshal(data, &w); err == nil {
			msg = IceComplete{w.SessionID}
		}
	case TypeBye:
		var w byeWire
		if err = json.Unmarshal(data, &w); err == nil {
			msg = Bye{w.SessionID, w.Reason}
		}
	default:
		logrus.WithFields(logrus.Fields{
			"function":     "Unmarshal",
			"message_type": tag.Type,
		}).Warn("Rejected signaling message with unknown type")
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, tag.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := Validate(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
