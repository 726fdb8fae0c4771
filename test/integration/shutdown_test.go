package integration

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamehubhq/relay-server/internal/relay"
	"github.com/gamehubhq/relay-server/internal/server"
	"github.com/gamehubhq/relay-server/test/testhelpers"
)

// startShutdownTestServer boots a gateway without registering cleanup, so the
// test controls the shutdown sequence itself.
func startShutdownTestServer(t *testing.T) (*httptest.Server, *server.Gateway) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = "*"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := server.NewGateway(cfg, relay.New(log), log)
	gateway.Start()

	return httptest.NewServer(gateway.Routes()), gateway
}

func TestGracefulShutdownWithoutClients(t *testing.T) {
	testServer, gateway := startShutdownTestServer(t)
	defer testServer.Close()

	if err := gateway.Shutdown(2 * time.Second); err != nil {
		t.Errorf("Shutdown without clients failed: %v", err)
	}
}

func TestGracefulShutdownClosesClientConnections(t *testing.T) {
	testServer, gateway := startShutdownTestServer(t)
	defer testServer.Close()

	const numClients = 5
	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		clients[i] = testhelpers.ConnectWebSocket(t, testServer)
	}
	time.Sleep(joinSettle)

	if err := gateway.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown with active clients failed: %v", err)
	}

	for i, conn := range clients {
		_ = conn.SetReadDeadline(time.Now().Add(receiveTimeout))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Errorf("Client %d still connected after shutdown", i)
		}
	}
}

func TestShutdownDrainsActiveVideoRoom(t *testing.T) {
	testServer, gateway := startShutdownTestServer(t)
	defer testServer.Close()

	// A video room with members exercises the disconnect cleanup path
	// during shutdown.
	connX := testhelpers.ConnectWebSocket(t, testServer)
	connY := testhelpers.ConnectWebSocket(t, testServer)
	testhelpers.SendEvent(t, connX, "join_room", joinRoom{RoomID: "closing", UserID: "user-x"})
	waitForVideoRoom(t, testServer, "closing")
	testhelpers.SendEvent(t, connY, "join_room", joinRoom{RoomID: "closing", UserID: "user-y"})
	testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout)

	if err := gateway.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestConcurrentShutdownCallsAreSafe(t *testing.T) {
	testServer, gateway := startShutdownTestServer(t)
	defer testServer.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- gateway.Shutdown(2 * time.Second)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent shutdown call failed: %v", err)
		}
	}
}

func TestShutdownRespectsTimeout(t *testing.T) {
	testServer, gateway := startShutdownTestServer(t)
	defer testServer.Close()

	start := time.Now()
	if err := gateway.Shutdown(2 * time.Second); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown of an idle gateway took too long: %v", elapsed)
	}
}
