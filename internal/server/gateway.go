// Package server coordinates client registration, outbound delivery, and
// connection cleanup for the relay gateway via the Gateway type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamehubhq/relay-server/internal/relay"
)

// Gateway owns the set of live WebSocket clients and bridges their lifecycle
// to the relay core: a registered client becomes a relay connection, an
// unregistered one triggers the relay's disconnect cleanup exactly once.
type Gateway struct {
	cfg      *Config
	relay    *relay.Relay
	log      *slog.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	mutex      sync.RWMutex
	register   chan *Client
	unregister chan *Client

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGateway creates a gateway around the given relay. Call Start before
// serving traffic.
func NewGateway(cfg *Config, rly *relay.Relay, log *slog.Logger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		cfg:        cfg,
		relay:      rly,
		log:        log,
		origins:    newOriginPolicy(cfg.Origins(), log),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.origins.check,
	}
	return g
}

// Start launches the gateway's run loop in its own goroutine.
func (g *Gateway) Start() {
	go g.run()
	g.log.Info("gateway started")
}

// run handles client registration and unregistration until shutdown. During
// shutdown it keeps consuming unregisters so every pump goroutine can exit.
func (g *Gateway) run() {
	for {
		select {
		case <-g.ctx.Done():
			g.shutdownClients()
			go func() {
				g.wg.Wait()
				close(g.done)
			}()
			for {
				select {
				case client := <-g.unregister:
					g.removeClient(client)
				case <-g.done:
					return
				}
			}

		case client := <-g.register:
			g.mutex.Lock()
			client.closed = false
			g.clients[client] = true
			count := len(g.clients)
			g.mutex.Unlock()

			g.relay.Connect(client.id, client)
			g.log.Info("client registered", "conn", client.id, "addr", client.addr, "clients", count)

			g.wg.Add(2)
			go func() {
				defer g.wg.Done()
				client.writePump()
			}()
			go func() {
				defer g.wg.Done()
				client.readPump()
			}()

		case client := <-g.unregister:
			g.removeClient(client)
		}
	}
}

// deliver pushes a marshaled frame onto the client's send channel without
// blocking. It reports false when the client is gone or its buffer is full.
func (g *Gateway) deliver(client *Client, payload []byte) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if _, exists := g.clients[client]; !exists || client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// removeClient unregisters the client and runs the relay's disconnect
// cleanup. Safe to call more than once; only the first call takes effect.
func (g *Gateway) removeClient(client *Client) {
	g.mutex.Lock()
	if _, exists := g.clients[client]; !exists {
		g.mutex.Unlock()
		return
	}
	delete(g.clients, client)
	client.closed = true
	count := len(g.clients)
	g.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	g.relay.Disconnect(client.id)
	g.log.Info("client unregistered", "conn", client.id, "addr", client.addr, "clients", count)
}

// shutdownClients closes every active connection so the pump goroutines
// unwind.
func (g *Gateway) shutdownClients() {
	g.mutex.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for client := range g.clients {
		clients = append(clients, client)
	}
	g.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				g.log.Debug("closing client connection", "conn", client.id, "error", err)
			}
		}
	}
	g.log.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown and waits until every client goroutine
// has finished or the timeout is reached.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	g.log.Info("initiating gateway shutdown")
	g.cancel()

	select {
	case <-g.done:
		g.log.Info("gateway shutdown completed")
		return nil
	case <-time.After(timeout):
		g.log.Warn("gateway shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
