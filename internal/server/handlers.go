// Package server exposes HTTP handlers: WebSocket upgrades, health checks,
// and the active-room listing.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// handleWebSocket upgrades the HTTP connection, assigns it a connection ID,
// and hands the resulting client to the gateway, which launches its pumps.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn, g, r.RemoteAddr)
	select {
	case g.register <- client:
	case <-g.ctx.Done():
		// Shutdown already started; the run loop no longer accepts clients.
		_ = conn.Close()
	}
}

// handleHealth provides a simple health check endpoint.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "gamehub relay is running!")
}

// handleRooms returns the IDs of the active video-call rooms as a JSON array.
func (g *Gateway) handleRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := g.relay.VideoRoomIDs()
	if rooms == nil {
		rooms = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		g.log.Warn("writing room listing", "error", err)
	}
}
