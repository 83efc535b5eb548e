package rtp

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/stream"
)

// BridgeConfig tunes the media bridge.
type BridgeConfig struct {
	// MaxPacketSize caps the encoded packet size accepted for
	// transmission. Zero means MaxPacketSize.
	MaxPacketSize int
}

// DefaultBridgeConfig returns the standard bridge configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{MaxPacketSize: MaxPacketSize}
}

// Bridge moves RTP packets between the caller and a prioritized stream
// multiplexer. Each stream type gets one multiplexer stream, created
// on first use, so audio packets always drain ahead of video and video
// ahead of screen share.
type Bridge struct {
	mu      sync.Mutex
	config  BridgeConfig
	manager *stream.Manager
	byType  map[stream.Type]uint64
}

// NewBridge creates a bridge draining into the given sender.
func NewBridge(config BridgeConfig, sender stream.Sender) *Bridge {
	if config.MaxPacketSize == 0 {
		config.MaxPacketSize = MaxPacketSize
	}
	return &Bridge{
		config:  config,
		manager: stream.NewManager(sender),
		byType:  make(map[stream.Type]uint64),
	}
}

// streamFor returns the multiplexer stream for a type, creating it on
// first use.
func (b *Bridge) streamFor(t stream.Type) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.byType[t]; ok {
		return id
	}
	id := b.manager.CreateStream(t)
	b.byType[t] = id

	logrus.WithFields(logrus.Fields{
		"function":    "Bridge.streamFor",
		"stream_type": t.String(),
		"stream_id":   id,
	}).Debug("Bridge stream created")

	return id
}

// SendPacket encodes the packet, queues it on the stream matching its
// classification, and flushes the queue in priority order.
func (b *Bridge) SendPacket(ctx context.Context, p *Packet) error {
	data, err := p.ToBytes()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Bridge.SendPacket",
			"error":    err.Error(),
		}).Error("Failed to encode RTP packet")
		return err
	}
	if len(data) > b.config.MaxPacketSize {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(data), b.config.MaxPacketSize)
	}

	id := b.streamFor(p.StreamType)
	if err := b.manager.Send(id, data); err != nil {
		return fmt.Errorf("queue RTP packet: %w", err)
	}
	return b.manager.Flush(ctx)
}

// HandleIncoming decodes a wire packet and buffers it on the stream
// matching the supplied classification.
func (b *Bridge) HandleIncoming(data []byte, streamType stream.Type) error {
	if _, err := FromBytes(data, streamType); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Bridge.HandleIncoming",
			"size":     len(data),
			"error":    err.Error(),
		}).Error("Failed to decode RTP packet")
		return err
	}

	id := b.streamFor(streamType)
	return b.manager.Deliver(id, data)
}

// ReceivePacket pops the oldest buffered packet for a stream type, if
// any.
func (b *Bridge) ReceivePacket(streamType stream.Type) (*Packet, bool, error) {
	b.mu.Lock()
	id, ok := b.byType[streamType]
	b.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	data, ok, err := b.manager.Receive(id)
	if err != nil || !ok {
		return nil, false, err
	}
	p, err := FromBytes(data, streamType)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// PendingCount returns how many packets await flushing.
func (b *Bridge) PendingCount() int {
	return b.manager.PendingCount()
}
