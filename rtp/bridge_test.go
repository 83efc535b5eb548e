package rtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/peercall/stream"
)

type captureSender struct {
	sent [][]byte
}

func (c *captureSender) SendBytes(_ context.Context, data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

func mustPacket(t *testing.T, seq uint16, payload string, st stream.Type) *Packet {
	t.Helper()
	p, err := NewPacket(96, seq, uint32(seq)*160, 0x1234, []byte(payload), st)
	require.NoError(t, err)
	return p
}

// TestBridgeSendPacket verifies an encoded packet reaches the sender.
func TestBridgeSendPacket(t *testing.T) {
	sender := &captureSender{}
	b := NewBridge(DefaultBridgeConfig(), sender)

	p := mustPacket(t, 1, "frame", stream.TypeAudio)
	require.NoError(t, b.SendPacket(context.Background(), p))

	require.Len(t, sender.sent, 1)
	decoded, err := FromBytes(sender.sent[0], stream.TypeAudio)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
	assert.Equal(t, 0, b.PendingCount())
}

// TestBridgeRejectsOversizedPacket verifies a tightened packet size
// bound is enforced at send time.
func TestBridgeRejectsOversizedPacket(t *testing.T) {
	b := NewBridge(BridgeConfig{MaxPacketSize: 64}, &captureSender{})

	p := mustPacket(t, 1, string(make([]byte, 100)), stream.TypeVideo)
	err := b.SendPacket(context.Background(), p)
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

// TestBridgeIncomingRoundTrip verifies a wire packet handed to the
// bridge can be received back decoded.
func TestBridgeIncomingRoundTrip(t *testing.T) {
	b := NewBridge(DefaultBridgeConfig(), nil)

	p := mustPacket(t, 7, "frame", stream.TypeVideo)
	data, err := p.ToBytes()
	require.NoError(t, err)

	require.NoError(t, b.HandleIncoming(data, stream.TypeVideo))

	got, ok, err := b.ReceivePacket(stream.TypeVideo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok, err = b.ReceivePacket(stream.TypeVideo)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestBridgeIncomingRejectsGarbage verifies malformed wire data is
// dropped with an error and nothing is buffered.
func TestBridgeIncomingRejectsGarbage(t *testing.T) {
	b := NewBridge(DefaultBridgeConfig(), nil)

	assert.ErrorIs(t, b.HandleIncoming(nil, stream.TypeAudio), ErrEmptyPacket)
	assert.ErrorIs(t, b.HandleIncoming(make([]byte, 2000), stream.TypeAudio), ErrPacketTooLarge)

	_, ok, err := b.ReceivePacket(stream.TypeAudio)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestBridgeReceiveUnknownType verifies receiving on a type the bridge
// has never seen reports no packet rather than an error.
func TestBridgeReceiveUnknownType(t *testing.T) {
	b := NewBridge(DefaultBridgeConfig(), nil)
	_, ok, err := b.ReceivePacket(stream.TypeScreenShare)
	require.NoError(t, err)
	assert.False(t, ok)
}
