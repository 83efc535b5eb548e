package transport

import (
	"context"
	"hash/fnv"
	"math/rand"
	"net/netip"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/signaling"
)

// SimConfig controls the failure model of a simulated transport.
type SimConfig struct {
	// Latency is the base one-way delay applied to every send.
	Latency time.Duration
	// PacketLoss is the independent per-send drop probability, 0 to 1.
	PacketLoss float64
	// FailureRate is the per-send connection failure probability,
	// 0 to 1.
	FailureRate float64
	// MaxQueueDepth bounds how many messages may be queued per peer
	// before sends are rejected with ErrQueueFull.
	MaxQueueDepth int
}

// DefaultSimConfig returns a benign simulation profile.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Latency:       10 * time.Millisecond,
		PacketLoss:    0,
		FailureRate:   0,
		MaxQueueDepth: 1000,
	}
}

// PerfectSimConfig returns a lossless, near-instant profile.
func PerfectSimConfig() SimConfig {
	return SimConfig{
		Latency:       time.Millisecond,
		PacketLoss:    0,
		FailureRate:   0,
		MaxQueueDepth: 1000,
	}
}

// MobileSimConfig returns a profile resembling a 4G link.
func MobileSimConfig() SimConfig {
	return SimConfig{
		Latency:       100 * time.Millisecond,
		PacketLoss:    0.02,
		FailureRate:   0.01,
		MaxQueueDepth: 500,
	}
}

// PoorSimConfig returns a congested, failure-prone profile.
func PoorSimConfig() SimConfig {
	return SimConfig{
		Latency:       200 * time.Millisecond,
		PacketLoss:    0.1,
		FailureRate:   0.05,
		MaxQueueDepth: 100,
	}
}

// envelope pairs a queued message with its sender.
type envelope[P signaling.PeerID] struct {
	from P
	msg  signaling.Message
}

// SimTransport is an in-process signaling transport for conformance and
// resilience testing. Connected transports exchange messages through
// bounded per-peer queues; latency, loss, send failures, and the active
// network Conditions profile shape every delivery.
//
// A single global FIFO backs the inbox, so messages from one peer are
// always received in the order they were sent.
type SimTransport[P signaling.PeerID] struct {
	id     P
	config SimConfig

	mu         sync.Mutex
	inbox      []envelope[P]
	depth      map[P]int
	peers      map[P]*SimTransport[P]
	conditions Conditions
	closed     bool
	sent       uint64

	notify chan struct{}
}

// neutralConditions is the initial profile: available, with no latency
// or loss of its own, so SimConfig alone governs until a profile is
// applied with SetConditions.
func neutralConditions() Conditions {
	return Conditions{BandwidthKbps: 10000, Available: true}
}

// NewSimTransport creates a simulated transport with the default
// config.
func NewSimTransport[P signaling.PeerID](id P) *SimTransport[P] {
	return NewSimTransportWithConfig(id, DefaultSimConfig())
}

// NewSimTransportWithConfig creates a simulated transport with an
// explicit failure model.
func NewSimTransportWithConfig[P signaling.PeerID](id P, config SimConfig) *SimTransport[P] {
	logrus.WithFields(logrus.Fields{
		"function":    "NewSimTransportWithConfig",
		"peer":        id.String(),
		"latency":     config.Latency,
		"packet_loss": config.PacketLoss,
		"queue_depth": config.MaxQueueDepth,
	}).Debug("Creating simulated transport")

	return &SimTransport[P]{
		id:         id,
		config:     config,
		depth:      make(map[P]int),
		peers:      make(map[P]*SimTransport[P]),
		conditions: neutralConditions(),
		notify:     make(chan struct{}, 1),
	}
}

// NewSimPair creates two simulated transports already connected to each
// other.
func NewSimPair[P signaling.PeerID](a, b P, config SimConfig) (*SimTransport[P], *SimTransport[P]) {
	ta := NewSimTransportWithConfig(a, config)
	tb := NewSimTransportWithConfig(b, config)
	ta.ConnectTo(tb)
	return ta, tb
}

// ID returns the local peer identity.
func (t *SimTransport[P]) ID() P { return t.id }

// ConnectTo establishes a bidirectional path to another transport.
func (t *SimTransport[P]) ConnectTo(other *SimTransport[P]) {
	t.mu.Lock()
	t.peers[other.id] = other
	t.mu.Unlock()

	other.mu.Lock()
	other.peers[t.id] = t
	other.mu.Unlock()
}

// Disconnect removes the path to a peer. Queued messages from that peer
// remain receivable.
func (t *SimTransport[P]) Disconnect(peer P) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peer)
}

// Connected reports whether a path to the peer exists.
func (t *SimTransport[P]) Connected(peer P) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.peers[peer]
	return ok
}

// SetConditions swaps the active network profile at runtime.
func (t *SimTransport[P]) SetConditions(c Conditions) {
	logrus.WithFields(logrus.Fields{
		"function": "SimTransport.SetConditions",
		"peer":     t.id.String(),
		"profile":  c.Description(),
	}).Debug("Switching simulated network conditions")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.conditions = c
}

// NetworkConditions returns the active network profile.
func (t *SimTransport[P]) NetworkConditions() Conditions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conditions
}

// MessagesSent returns how many messages this transport has delivered.
func (t *SimTransport[P]) MessagesSent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

// QueuedFrom returns how many messages from the peer await receipt.
func (t *SimTransport[P]) QueuedFrom(peer P) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depth[peer]
}

// ClearQueues drops all pending messages.
func (t *SimTransport[P]) ClearQueues() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbox = nil
	t.depth = make(map[P]int)
}

// Close shuts the transport down. Blocked receivers are released with
// ErrClosed.
func (t *SimTransport[P]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

// SendMessage delivers one message to the peer, subject to the failure
// model. Failures are scoped to this send: state for other peers is
// untouched.
func (t *SimTransport[P]) SendMessage(ctx context.Context, peer P, msg signaling.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	remote, connected := t.peers[peer]
	conditions := t.conditions
	t.mu.Unlock()

	if !connected {
		return &NotConnectedError{Peer: peer.String()}
	}
	if !conditions.Available {
		return ErrNetworkUnavailable
	}

	if delay := t.sendDelay(conditions); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	lossProbability := t.config.PacketLoss
	if p := conditions.PacketLossPercent / 100; p > lossProbability {
		lossProbability = p
	}
	if lossProbability > 0 && rand.Float64() < lossProbability {
		logrus.WithFields(logrus.Fields{
			"function":     "SimTransport.SendMessage",
			"peer":         peer.String(),
			"message_type": msg.Type(),
		}).Debug("Simulated packet loss")
		return ErrPacketLoss
	}
	if t.config.FailureRate > 0 && rand.Float64() < t.config.FailureRate {
		return ErrConnectionFailed
	}

	if err := remote.enqueue(t.id, msg); err != nil {
		return err
	}

	t.mu.Lock()
	t.sent++
	t.mu.Unlock()
	return nil
}

// sendDelay combines the configured base latency with the active
// profile's latency and jitter.
func (t *SimTransport[P]) sendDelay(c Conditions) time.Duration {
	delay := t.config.Latency
	delay += time.Duration(c.LatencyMs) * time.Millisecond
	if c.JitterMs > 0 {
		delay += time.Duration(rand.Int63n(int64(c.JitterMs)+1)) * time.Millisecond
	}
	return delay
}

// enqueue appends a message to the inbox, honoring the per-peer bound.
func (t *SimTransport[P]) enqueue(from P, msg signaling.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.depth[from] >= t.config.MaxQueueDepth {
		t.mu.Unlock()
		return ErrQueueFull
	}
	t.inbox = append(t.inbox, envelope[P]{from: from, msg: msg})
	t.depth[from]++
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

// ReceiveMessage blocks until a message arrives, the context is done,
// or the transport closes.
func (t *SimTransport[P]) ReceiveMessage(ctx context.Context) (P, signaling.Message, error) {
	var zero P
	for {
		if peer, msg, ok := t.pop(); ok {
			return peer, msg, nil
		}
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return zero, nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return zero, nil, ctx.Err()
		case <-t.notify:
		}
	}
}

// TryReceiveMessage returns the next queued message without blocking,
// or ErrNoMessages if the inbox is empty.
func (t *SimTransport[P]) TryReceiveMessage() (P, signaling.Message, error) {
	var zero P
	if peer, msg, ok := t.pop(); ok {
		return peer, msg, nil
	}
	return zero, nil, ErrNoMessages
}

// pop removes the oldest queued message.
func (t *SimTransport[P]) pop() (P, signaling.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero P
	if len(t.inbox) == 0 {
		return zero, nil, false
	}
	env := t.inbox[0]
	t.inbox = t.inbox[1:]
	t.depth[env.from]--
	if t.depth[env.from] <= 0 {
		delete(t.depth, env.from)
	}
	return env.from, env.msg, true
}

// DiscoverPeerEndpoint synthesizes a loopback endpoint for connected
// peers. Unknown peers resolve to no endpoint without error.
func (t *SimTransport[P]) DiscoverPeerEndpoint(_ context.Context, peer P) (*netip.AddrPort, error) {
	if !t.Connected(peer) {
		return nil, nil
	}
	h := fnv.New32a()
	h.Write([]byte(peer.String()))
	port := uint16(10000 + h.Sum32()%50000)
	ap := netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port)
	return &ap, nil
}
