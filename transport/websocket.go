package transport

import (
	"context"
	"encoding/json"
	"net/netip"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/peercall/signaling"
)

// wsEnvelope is the relay frame exchanged with a signaling server:
// sender, recipient, and the encoded signaling message as payload.
type wsEnvelope struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// WebSocketTransport carries signaling through a WebSocket relay
// server. The relay routes envelopes by recipient identity; the
// underlying TCP stream gives per-connection ordering for free.
type WebSocketTransport[P signaling.PeerID] struct {
	conn      *websocket.Conn
	localID   P
	parsePeer func(string) (P, error)

	// writeMu serializes writers; gorilla connections allow only one
	// concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// DialWebSocket connects to a signaling relay at the given URL and
// announces the local identity. parsePeer maps the textual sender
// identity in inbound envelopes back to P.
func DialWebSocket[P signaling.PeerID](ctx context.Context, url string, localID P, parsePeer func(string) (P, error)) (*WebSocketTransport[P], error) {
	logrus.WithFields(logrus.Fields{
		"function": "DialWebSocket",
		"url":      url,
		"local_id": localID.String(),
	}).Info("Connecting to signaling relay")

	if parsePeer == nil {
		return nil, &NetworkError{Reason: "peer parser cannot be nil"}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DialWebSocket",
			"url":      url,
			"error":    err.Error(),
		}).Error("Failed to connect to signaling relay")
		return nil, &NetworkError{Reason: "dial failed", Err: err}
	}

	t := &WebSocketTransport[P]{
		conn:      conn,
		localID:   localID,
		parsePeer: parsePeer,
	}

	// Announce ourselves so the relay can route envelopes addressed
	// to this identity.
	hello := wsEnvelope{From: localID.String()}
	if err := t.writeJSON(hello); err != nil {
		conn.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "DialWebSocket",
		"local_id": localID.String(),
	}).Info("Connected to signaling relay")

	return t, nil
}

func (t *WebSocketTransport[P]) writeJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(v); err != nil {
		return &NetworkError{Reason: "write failed", Err: err}
	}
	return nil
}

// SendMessage wraps the signaling message in a relay envelope and
// writes it to the server.
func (t *WebSocketTransport[P]) SendMessage(_ context.Context, peer P, msg signaling.Message) error {
	payload, err := signaling.Marshal(msg)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "WebSocketTransport.SendMessage",
		"peer":         peer.String(),
		"message_type": msg.Type(),
	}).Debug("Relaying signaling message")

	return t.writeJSON(wsEnvelope{
		From:    t.localID.String(),
		To:      peer.String(),
		Payload: payload,
	})
}

// ReceiveMessage reads the next envelope from the relay. Envelopes with
// unparseable senders or payloads are rejected, not skipped, so the
// caller decides whether to keep reading.
func (t *WebSocketTransport[P]) ReceiveMessage(_ context.Context) (P, signaling.Message, error) {
	var zero P

	var env wsEnvelope
	if err := t.conn.ReadJSON(&env); err != nil {
		return zero, nil, &NetworkError{Reason: "read failed", Err: err}
	}

	peer, err := t.parsePeer(env.From)
	if err != nil {
		return zero, nil, &NetworkError{Reason: "unparseable sender identity", Err: err}
	}

	msg, err := signaling.Unmarshal(env.Payload)
	if err != nil {
		return zero, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "WebSocketTransport.ReceiveMessage",
		"peer":         peer.String(),
		"message_type": msg.Type(),
	}).Debug("Received relayed signaling message")

	return peer, msg, nil
}

// DiscoverPeerEndpoint always reports the endpoint as unknown: a relay
// hides peer addresses, so media-path discovery belongs to the
// underlying peer transport.
func (t *WebSocketTransport[P]) DiscoverPeerEndpoint(_ context.Context, _ P) (*netip.AddrPort, error) {
	return nil, nil
}

// Close tears the relay connection down.
func (t *WebSocketTransport[P]) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}
