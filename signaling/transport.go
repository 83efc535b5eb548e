package signaling

import (
	"context"
	"fmt"
	"net/netip"
)

// PeerID constrains the peer identity types the signaling stack can
// address. Identities must be usable as map keys and carry a textual
// form for logging and wire envelopes; parsing the textual form back
// is the concern of whoever configures the transport.
type PeerID interface {
	comparable
	fmt.Stringer
}

// Transport is the capability contract a peer-messaging backend must
// satisfy to carry signaling. Implementations are shared read-only
// across sessions: a failure talking to one peer must not corrupt
// state used for other peers.
//
// The transport alone guarantees neither delivery nor ordering; callers
// needing ordering must run over a reliable ordered stream or impose
// sequencing themselves.
type Transport[P PeerID] interface {
	// SendMessage attempts one best-effort delivery to the peer.
	SendMessage(ctx context.Context, peer P, msg Message) error

	// ReceiveMessage blocks until a message is available or the
	// context is done. Non-blocking backends fail with a no-messages
	// error instead of waiting.
	ReceiveMessage(ctx context.Context) (P, Message, error)

	// DiscoverPeerEndpoint resolves a direct endpoint for the peer.
	// A nil endpoint with a nil error means the endpoint is unknown
	// and the underlying transport's own discovery should be used.
	DiscoverPeerEndpoint(ctx context.Context, peer P) (*netip.AddrPort, error)
}
