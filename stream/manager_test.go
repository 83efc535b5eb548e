package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender collects flushed payloads in order.
type recordingSender struct {
	sent    [][]byte
	failAll bool
}

func (r *recordingSender) SendBytes(_ context.Context, data []byte) error {
	if r.failAll {
		return errors.New("link down")
	}
	r.sent = append(r.sent, data)
	return nil
}

// TestManagerCreateAndLookup verifies stream registration and lookup.
func TestManagerCreateAndLookup(t *testing.T) {
	m := NewManager(nil)

	id := m.CreateStream(TypeAudio)
	s, ok := m.Stream(id)
	require.True(t, ok)
	assert.Equal(t, TypeAudio, s.Type)
	assert.Equal(t, AudioQoS(), s.QoS)

	_, ok = m.Stream(999)
	assert.False(t, ok)
}

// TestManagerDedicatedDataQoS verifies a caller can opt out of the
// legacy data-to-audio QoS mapping.
func TestManagerDedicatedDataQoS(t *testing.T) {
	m := NewManager(nil)

	legacy := m.CreateStream(TypeData)
	s, _ := m.Stream(legacy)
	assert.Equal(t, AudioQoS(), s.QoS)

	dedicated := m.CreateStreamWithQoS(TypeData, DataQoS())
	s, _ = m.Stream(dedicated)
	assert.Equal(t, DataQoS(), s.QoS)
}

// TestManagerCloseStream verifies close removes the stream and repeated
// close fails.
func TestManagerCloseStream(t *testing.T) {
	m := NewManager(nil)

	id := m.CreateStream(TypeVideo)
	require.NoError(t, m.CloseStream(id))

	_, ok := m.Stream(id)
	assert.False(t, ok)
	assert.ErrorIs(t, m.CloseStream(id), ErrStreamNotFound)
}

// TestManagerFlushPriorityOrder verifies flushing drains audio before
// video before screen share before data, regardless of send order.
func TestManagerFlushPriorityOrder(t *testing.T) {
	sender := &recordingSender{}
	m := NewManager(sender)

	data := m.CreateStream(TypeData)
	video := m.CreateStream(TypeVideo)
	audio := m.CreateStream(TypeAudio)
	screen := m.CreateStream(TypeScreenShare)

	require.NoError(t, m.Send(data, []byte("data")))
	require.NoError(t, m.Send(screen, []byte("screen")))
	require.NoError(t, m.Send(video, []byte("video")))
	require.NoError(t, m.Send(audio, []byte("audio")))

	require.NoError(t, m.Flush(context.Background()))

	require.Len(t, sender.sent, 4)
	assert.Equal(t, "audio", string(sender.sent[0]))
	assert.Equal(t, "video", string(sender.sent[1]))
	assert.Equal(t, "screen", string(sender.sent[2]))
	assert.Equal(t, "data", string(sender.sent[3]))
}

// TestManagerFlushFIFOWithinClass verifies FIFO within one priority
// class.
func TestManagerFlushFIFOWithinClass(t *testing.T) {
	sender := &recordingSender{}
	m := NewManager(sender)

	audio := m.CreateStream(TypeAudio)
	for _, payload := range []string{"one", "two", "three"} {
		require.NoError(t, m.Send(audio, []byte(payload)))
	}
	require.NoError(t, m.Flush(context.Background()))

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "one", string(sender.sent[0]))
	assert.Equal(t, "two", string(sender.sent[1]))
	assert.Equal(t, "three", string(sender.sent[2]))
}

// TestManagerFlushStopsOnFailure verifies a send failure leaves the
// remaining payloads queued for a later flush.
func TestManagerFlushStopsOnFailure(t *testing.T) {
	sender := &recordingSender{failAll: true}
	m := NewManager(sender)

	audio := m.CreateStream(TypeAudio)
	require.NoError(t, m.Send(audio, []byte("payload")))

	assert.Error(t, m.Flush(context.Background()))
	assert.Equal(t, 1, m.PendingCount())

	sender.failAll = false
	require.NoError(t, m.Flush(context.Background()))
	assert.Equal(t, 0, m.PendingCount())
}

// TestManagerSendUnknownStream verifies queuing on an unregistered
// stream fails.
func TestManagerSendUnknownStream(t *testing.T) {
	m := NewManager(&recordingSender{})
	assert.ErrorIs(t, m.Send(42, []byte("x")), ErrStreamNotFound)
}

// TestManagerFlushWithoutSender verifies classification-only managers
// refuse to flush.
func TestManagerFlushWithoutSender(t *testing.T) {
	m := NewManager(nil)
	audio := m.CreateStream(TypeAudio)
	require.NoError(t, m.Send(audio, []byte("x")))
	assert.ErrorIs(t, m.Flush(context.Background()), ErrNoSender)
}

// TestManagerDeliverReceive verifies the inbound path buffers per
// stream in arrival order.
func TestManagerDeliverReceive(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateStream(TypeAudio)

	require.NoError(t, m.Deliver(id, []byte("first")))
	require.NoError(t, m.Deliver(id, []byte("second")))

	data, ok, err := m.Receive(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(data))

	data, ok, err = m.Receive(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(data))

	_, ok, err = m.Receive(id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, m.Deliver(999, []byte("x")), ErrStreamNotFound)
	_, _, err = m.Receive(999)
	assert.ErrorIs(t, err, ErrStreamNotFound)
}
