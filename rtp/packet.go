// Package rtp carries media payloads as RTP packets over a
// byte-oriented transport, classified by stream type for
// prioritization.
package rtp

import (
	"errors"
	"fmt"

	pionrtp "github.com/pion/rtp"

	"github.com/opd-ai/peercall/stream"
)

const (
	// HeaderSize is the fixed RTP header size without CSRCs or
	// extensions.
	HeaderSize = 12

	// MaxPacketSize is the largest encoded packet accepted on the wire.
	MaxPacketSize = 1200

	// MaxPayloadSize is MaxPacketSize minus the fixed header.
	MaxPayloadSize = MaxPacketSize - HeaderSize
)

// Sentinel errors for packet validation.
var (
	// ErrPayloadTooLarge indicates a payload over MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

	// ErrEmptyPacket indicates decoding was attempted on empty input.
	ErrEmptyPacket = errors.New("cannot decode empty packet")

	// ErrPacketTooLarge indicates encoded input over MaxPacketSize.
	ErrPacketTooLarge = errors.New("packet exceeds maximum size")

	// ErrMalformedPacket indicates input that is not a valid RTP packet.
	ErrMalformedPacket = errors.New("malformed RTP packet")
)

// Packet is one RTP packet plus its stream classification. The
// classification travels out of band; it is not part of the 12-byte
// wire header.
type Packet struct {
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	Payload        []byte
	StreamType     stream.Type
}

// NewPacket builds a packet, rejecting payloads that would not fit in
// a MaxPacketSize wire packet. The payload is copied.
func NewPacket(payloadType uint8, sequenceNumber uint16, timestamp uint32, ssrc uint32, payload []byte, streamType stream.Type) (*Packet, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	return &Packet{
		PayloadType:    payloadType,
		SequenceNumber: sequenceNumber,
		Timestamp:      timestamp,
		SSRC:           ssrc,
		Payload:        buf,
		StreamType:     streamType,
	}, nil
}

// Size returns the encoded size in bytes.
func (p *Packet) Size() int {
	return HeaderSize + len(p.Payload)
}

// ToBytes encodes the packet into RTP wire format.
func (p *Packet) ToBytes() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(p.Payload), MaxPayloadSize)
	}

	wire := pionrtp.Packet{
		Header: pionrtp.Header{
			Version:        2,
			Marker:         p.Marker,
			PayloadType:    p.PayloadType,
			SequenceNumber: p.SequenceNumber,
			Timestamp:      p.Timestamp,
			SSRC:           p.SSRC,
		},
		Payload: p.Payload,
	}
	data, err := wire.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode RTP packet: %w", err)
	}
	return data, nil
}

// FromBytes decodes a wire packet. Bounds are checked before any
// decoding work so oversized or empty input is rejected cheaply. The
// stream classification is supplied by the caller since it does not
// travel in the wire header.
func FromBytes(data []byte, streamType stream.Type) (*Packet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	if len(data) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(data), MaxPacketSize)
	}

	var wire pionrtp.Packet
	if err := wire.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	payload := make([]byte, len(wire.Payload))
	copy(payload, wire.Payload)
	return &Packet{
		Marker:         wire.Marker,
		PayloadType:    wire.PayloadType,
		SequenceNumber: wire.SequenceNumber,
		Timestamp:      wire.Timestamp,
		SSRC:           wire.SSRC,
		Payload:        payload,
		StreamType:     streamType,
	}, nil
}
