// Package server wires the gateway's HTTP handlers into a ServeMux.
package server

import "net/http"

// Routes returns an HTTP ServeMux with all gateway routes: health check,
// WebSocket endpoint, and the video-room listing.
func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleHealth)
	mux.HandleFunc("/ws", g.handleWebSocket)
	mux.HandleFunc("/rooms", g.handleRooms)
	return mux
}
