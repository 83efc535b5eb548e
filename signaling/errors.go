package signaling

import "errors"

// Sentinel errors for signaling operations.
// These enable reliable classification with errors.Is().
var (
	// ErrInvalidMessage indicates a message that violates the protocol
	// invariants (unknown type, malformed body, bad session id).
	ErrInvalidMessage = errors.New("invalid signaling message")

	// ErrInvalidSDP indicates session description content that could
	// not be parsed.
	ErrInvalidSDP = errors.New("invalid SDP")

	// ErrSessionNotFound indicates a message referenced a session
	// unknown to the receiver.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTransport indicates the underlying transport failed to move
	// a message.
	ErrTransport = errors.New("signaling transport error")
)
