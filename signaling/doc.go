// Package signaling implements the call negotiation protocol exchanged
// between peers: SDP offers and answers, ICE candidates, and session
// teardown messages, together with the transport capability any
// peer-messaging backend must satisfy.
//
// The package is pure protocol: message types know how to encode and
// decode themselves and how to report the session they belong to, but
// carry no state. Delivery, ordering, and reliability are the
// transport's concern.
package signaling
