package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport operations. Each distinguishes a
// different recovery strategy for the caller: packet loss and
// connection failures are plausibly transient, a full queue wants
// backoff, and a missing connection wants re-discovery.
var (
	// ErrPacketLoss indicates the message was dropped in flight.
	ErrPacketLoss = errors.New("packet lost")

	// ErrConnectionFailed indicates the send failed at the link level.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrQueueFull indicates the peer's bounded message queue is at
	// capacity.
	ErrQueueFull = errors.New("message queue full")

	// ErrNoMessages indicates no message is available on a
	// non-blocking receive.
	ErrNoMessages = errors.New("no messages available")

	// ErrNetworkUnavailable indicates the simulated network profile is
	// currently offline.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrClosed indicates the transport has been shut down.
	ErrClosed = errors.New("transport closed")
)

// NotConnectedError indicates no established path exists to the peer.
// It carries the peer so callers can target re-discovery.
type NotConnectedError struct {
	Peer string
}

// Error implements the error interface.
func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected to peer: %s", e.Peer)
}

// NetworkError wraps a backend-specific failure with its reason.
type NetworkError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("network error: %s", e.Reason)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *NetworkError) Unwrap() error { return e.Err }
