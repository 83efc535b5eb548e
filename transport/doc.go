// Package transport provides signaling transport backends and the
// shared transport error taxonomy.
//
// Two backends are included: a simulated in-process transport used for
// conformance and resilience testing, with configurable latency, packet
// loss, send failures, bounded per-peer queues, and runtime-mutable
// network condition profiles; and a WebSocket relay transport for
// running against a signaling server.
//
// Both implement the signaling.Transport capability. A failure talking
// to one peer never corrupts state used for other peers.
package transport
