package rtp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/peercall/stream"
)

// TestNewPacketRejectsOversizedPayload verifies the 1188-byte payload
// bound is enforced before any allocation of the packet.
func TestNewPacketRejectsOversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPayloadSize+1)
	_, err := NewPacket(96, 1, 1000, 0xDEADBEEF, payload, stream.TypeVideo)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

// TestNewPacketAtPayloadBound verifies a payload of exactly 1188 bytes
// is accepted and encodes to exactly 1200 bytes.
func TestNewPacketAtPayloadBound(t *testing.T) {
	payload := make([]byte, MaxPayloadSize)
	p, err := NewPacket(96, 1, 1000, 0xDEADBEEF, payload, stream.TypeVideo)
	require.NoError(t, err)
	assert.Equal(t, MaxPacketSize, p.Size())

	data, err := p.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, MaxPacketSize, len(data))
}

// TestPacketRoundTrip verifies encode followed by decode reproduces
// the packet, stream classification included.
func TestPacketRoundTrip(t *testing.T) {
	p, err := NewPacket(111, 42, 160_000, 0xCAFEBABE, []byte("opus frame"), stream.TypeAudio)
	require.NoError(t, err)
	p.Marker = true

	data, err := p.ToBytes()
	require.NoError(t, err)

	decoded, err := FromBytes(data, p.StreamType)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

// TestFromBytesRejectsEmpty verifies empty input never reaches the
// decoder.
func TestFromBytesRejectsEmpty(t *testing.T) {
	_, err := FromBytes(nil, stream.TypeAudio)
	assert.ErrorIs(t, err, ErrEmptyPacket)

	_, err = FromBytes([]byte{}, stream.TypeAudio)
	assert.ErrorIs(t, err, ErrEmptyPacket)
}

// TestFromBytesRejectsOversized verifies input over 1200 bytes is
// rejected before decoding.
func TestFromBytesRejectsOversized(t *testing.T) {
	_, err := FromBytes(make([]byte, MaxPacketSize+1), stream.TypeAudio)
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

// TestFromBytesRejectsTruncatedHeader verifies input shorter than the
// fixed header fails as malformed.
func TestFromBytesRejectsTruncatedHeader(t *testing.T) {
	_, err := FromBytes([]byte{0x80, 0x60, 0x00}, stream.TypeAudio)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

// TestNewPacketCopiesPayload verifies the caller's buffer can be
// reused after construction.
func TestNewPacketCopiesPayload(t *testing.T) {
	buf := []byte("original")
	p, err := NewPacket(96, 1, 0, 1, buf, stream.TypeData)
	require.NoError(t, err)

	copy(buf, "mutated!")
	assert.True(t, bytes.Equal(p.Payload, []byte("original")))
}
