package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/peercall/signaling"
)

// testRelay is a minimal in-test signaling relay: the first envelope a
// client sends registers its identity, subsequent envelopes are routed
// to the connection registered under their recipient.
type testRelay struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func newTestRelay() *testRelay {
	return &testRelay{conns: make(map[string]*websocket.Conn)}
}

func (r *testRelay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	go r.serve(conn)
}

func (r *testRelay) serve(conn *websocket.Conn) {
	defer conn.Close()
	registered := ""
	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if registered == "" {
			registered = env.From
			r.mu.Lock()
			r.conns[registered] = conn
			r.mu.Unlock()
			if env.To == "" {
				continue
			}
		}
		r.mu.Lock()
		target := r.conns[env.To]
		r.mu.Unlock()
		if target != nil {
			target.WriteJSON(env)
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func parseSimPeer(s string) (simPeer, error) { return simPeer(s), nil }

// TestWebSocketTransportRoundTrip verifies a message relayed between
// two clients arrives intact with the sender identity.
func TestWebSocketTransportRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newTestRelay())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := DialWebSocket(ctx, wsURL(srv), simPeer("alice"), parseSimPeer)
	require.NoError(t, err)
	defer alice.Close()

	bob, err := DialWebSocket(ctx, wsURL(srv), simPeer("bob"), parseSimPeer)
	require.NoError(t, err)
	defer bob.Close()

	// Give the relay a moment to register both identities.
	time.Sleep(50 * time.Millisecond)

	msg := signaling.Offer{Session: "sess-ws", SDP: "v=0"}
	require.NoError(t, alice.SendMessage(ctx, "bob", msg))

	peer, received, err := bob.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, simPeer("alice"), peer)
	assert.Equal(t, signaling.Message(msg), received)
}

// TestWebSocketTransportOrdering verifies relay delivery preserves send
// order over the single stream.
func TestWebSocketTransportOrdering(t *testing.T) {
	srv := httptest.NewServer(newTestRelay())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := DialWebSocket(ctx, wsURL(srv), simPeer("alice"), parseSimPeer)
	require.NoError(t, err)
	defer alice.Close()

	bob, err := DialWebSocket(ctx, wsURL(srv), simPeer("bob"), parseSimPeer)
	require.NoError(t, err)
	defer bob.Close()

	time.Sleep(50 * time.Millisecond)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, alice.SendMessage(ctx, "bob", signaling.IceComplete{Session: id}))
	}
	for _, want := range []string{"a", "b", "c"} {
		_, msg, err := bob.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, msg.SessionID())
	}
}

// TestWebSocketTransportRejectsBadPayload verifies malformed payloads
// surface as protocol errors rather than being skipped.
func TestWebSocketTransportRejectsBadPayload(t *testing.T) {
	srv := httptest.NewServer(newTestRelay())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := DialWebSocket(ctx, wsURL(srv), simPeer("alice"), parseSimPeer)
	require.NoError(t, err)
	defer alice.Close()

	bob, err := DialWebSocket(ctx, wsURL(srv), simPeer("bob"), parseSimPeer)
	require.NoError(t, err)
	defer bob.Close()

	time.Sleep(50 * time.Millisecond)

	// Hand-craft an envelope with a payload that is not a valid
	// signaling message.
	raw, err := json.Marshal(wsEnvelope{
		From:    "alice",
		To:      "bob",
		Payload: json.RawMessage(`{"type":"bogus","session_id":"s"}`),
	})
	require.NoError(t, err)
	alice.writeMu.Lock()
	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, raw))
	alice.writeMu.Unlock()

	_, _, err = bob.ReceiveMessage(ctx)
	assert.ErrorIs(t, err, signaling.ErrInvalidMessage)
}

// TestWebSocketTransportDiscoverUnknown verifies the relay transport
// never claims to know peer endpoints.
func TestWebSocketTransportDiscoverUnknown(t *testing.T) {
	srv := httptest.NewServer(newTestRelay())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := DialWebSocket(ctx, wsURL(srv), simPeer("alice"), parseSimPeer)
	require.NoError(t, err)
	defer alice.Close()

	ep, err := alice.DiscoverPeerEndpoint(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, ep)
}
