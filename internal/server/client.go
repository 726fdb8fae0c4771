// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamehubhq/relay-server/internal/relay"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to the peer with this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one WebSocket connection. It pumps inbound frames into
// the relay and implements relay.Sink for outbound delivery. The closed flag
// is guarded by the gateway mutex.
type Client struct {
	id          string
	addr        string
	conn        *websocket.Conn
	send        chan []byte
	gateway     *Gateway
	rateLimiter *rateLimiter
	log         *slog.Logger
	closed      bool
}

func newClient(id string, conn *websocket.Conn, gateway *Gateway, addr string) *Client {
	cfg := gateway.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:          id,
		addr:        addr,
		conn:        conn,
		send:        make(chan []byte, cfg.SendBufferSize),
		gateway:     gateway,
		rateLimiter: newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill),
		log:         gateway.log.With("conn", id),
	}
}

// ID returns the connection identifier assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// Deliver implements relay.Sink. The frame is marshaled and pushed onto the
// send channel without blocking; a client whose buffer is full is dropped,
// which tears down its connection.
func (c *Client) Deliver(evt relay.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.log.Error("marshaling outbound event", "event", evt.Event, "error", err)
		return
	}
	if !c.gateway.deliver(c, payload) {
		c.log.Warn("send buffer full, dropping client")
		c.gateway.removeClient(c)
	}
}

// handleReadError logs the read failure appropriately and always signals the
// read loop to stop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.gateway.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("client disconnected", "error", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("connection closed", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.gateway.unregister <- c
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("closing connection in read pump", "error", err)
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.rateLimiter.allow() {
			c.log.Warn("rate limit exceeded, discarding event",
				"burst", c.gateway.cfg.RateLimitBurst,
				"interval", c.gateway.cfg.RateLimitRefill)
			continue
		}

		c.gateway.relay.HandleEvent(c.id, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("closing connection in write pump", "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The gateway closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(payload) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// writeFrame writes one frame plus any frames already queued behind it, each
// as its own WebSocket message.
func (c *Client) writeFrame(payload []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug("write failed", "error", err)
		return false
	}
	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
			c.log.Debug("queued write failed", "error", err)
			return false
		}
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
