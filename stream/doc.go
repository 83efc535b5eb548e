// Package stream classifies media streams and multiplexes them with
// per-type quality-of-service onto a shared byte transport.
//
// Two priority scales coexist and are intentionally distinct:
// StreamType priority (lower value = scheduled first) orders the
// multiplexer, while QoS.Priority (higher value = more important) is
// the hint handed to the underlying transport. Do not unify them.
package stream
