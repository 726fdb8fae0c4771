// Package relay implements the in-memory room and presence core of the
// gamehub realtime service.
//
// The package tracks which connections belong to which chat channels and
// video-call rooms, fans chat messages out to channel members, and forwards
// WebRTC signaling payloads (offers, answers, ICE candidates) point-to-point
// between connections. It performs no I/O of its own: delivery happens through
// the Sink interface supplied by the transport layer, and every push is
// fire-and-forget. All state lives for the lifetime of the process.
package relay
