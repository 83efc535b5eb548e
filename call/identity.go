package call

import (
	"errors"
	"strings"
)

// ErrEmptyPeerID indicates a blank peer identity string.
var ErrEmptyPeerID = errors.New("empty peer id")

// StringPeer is the simplest peer identity: an opaque non-empty
// string. It satisfies the signaling peer constraint and is what the
// tests and examples use; applications with richer identities supply
// their own type.
type StringPeer string

// String returns the identity itself.
func (p StringPeer) String() string {
	return string(p)
}

// ParseStringPeer validates and builds a string identity.
func ParseStringPeer(s string) (StringPeer, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyPeerID
	}
	return StringPeer(s), nil
}
