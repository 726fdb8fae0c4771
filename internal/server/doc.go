// Package server implements the transport gateway of the gamehub relay: the
// HTTP and WebSocket surface in front of the in-memory room core.
//
// The implementation is organized into specialized files for configuration,
// gateway management, clients, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
