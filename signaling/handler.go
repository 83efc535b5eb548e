package signaling

import (
	"context"
	"errors"
	"net/netip"

	"github.com/sirupsen/logrus"
)

// Handler binds a transport instance to the signaling protocol. It is a
// stateless façade: every operation delegates to the bound transport.
// It exists so the call orchestrator depends on "send a signaling
// message" rather than on a concrete backend, keeping transports
// substitutable without touching the state machine.
type Handler[P PeerID] struct {
	transport Transport[P]
}

// NewHandler creates a handler bound to the given transport.
func NewHandler[P PeerID](transport Transport[P]) (*Handler[P], error) {
	if transport == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewHandler",
			"error":    "transport cannot be nil",
		}).Error("Handler validation failed")
		return nil, errors.New("transport cannot be nil")
	}
	return &Handler[P]{transport: transport}, nil
}

// SendMessage delivers a signaling message to the peer via the bound
// transport.
func (h *Handler[P]) SendMessage(ctx context.Context, peer P, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"function":     "Handler.SendMessage",
		"peer":         peer.String(),
		"message_type": msg.Type(),
		"session_id":   msg.SessionID(),
	}).Debug("Sending signaling message")

	return h.transport.SendMessage(ctx, peer, msg)
}

// ReceiveMessage waits for the next inbound signaling message.
func (h *Handler[P]) ReceiveMessage(ctx context.Context) (P, Message, error) {
	return h.transport.ReceiveMessage(ctx)
}

// DiscoverPeerEndpoint resolves a direct endpoint for the peer, if the
// transport knows one.
func (h *Handler[P]) DiscoverPeerEndpoint(ctx context.Context, peer P) (*netip.AddrPort, error) {
	return h.transport.DiscoverPeerEndpoint(ctx, peer)
}
