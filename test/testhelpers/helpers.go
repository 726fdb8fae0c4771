// Package testhelpers provides common utilities and helper functions for
// testing the relay server.
//
// It contains reusable helpers shared across integration tests: starting a
// full relay server, dialing WebSocket connections, and exchanging event
// envelopes, to reduce code duplication in test files.
package testhelpers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamehubhq/relay-server/internal/relay"
	"github.com/gamehubhq/relay-server/internal/server"
)

// StartRelayServer boots a gateway with permissive test configuration behind
// an httptest server. Both are torn down via t.Cleanup.
func StartRelayServer(t *testing.T) (*httptest.Server, *server.Gateway) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = "*"
	cfg.RateLimitBurst = 1000

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := server.NewGateway(cfg, relay.New(log), log)
	gateway.Start()

	testServer := httptest.NewServer(gateway.Routes())
	t.Cleanup(func() {
		testServer.Close()
		_ = gateway.Shutdown(5 * time.Second)
	})
	return testServer, gateway
}

// WebSocketURL converts an httptest server URL into its /ws endpoint.
func WebSocketURL(testServer *httptest.Server) string {
	return "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
}

// ConnectWebSocket dials the relay's WebSocket endpoint and registers cleanup
// for the connection.
func ConnectWebSocket(t *testing.T, testServer *httptest.Server) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(WebSocketURL(testServer), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent marshals and sends one event envelope over the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", event, err)
	}
	if err := conn.WriteJSON(relay.Envelope{Event: event, Data: payload}); err != nil {
		t.Fatalf("Failed to send %s event: %v", event, err)
	}
}

// ReceiveEvent reads the next envelope from the connection, failing the test
// if nothing arrives within the timeout.
func ReceiveEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) relay.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var env relay.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return env
}

// ExpectEvent reads the next envelope and asserts its event name.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) relay.Envelope {
	t.Helper()

	env := ReceiveEvent(t, conn, timeout)
	if env.Event != event {
		t.Fatalf("Expected event %q, got %q", event, env.Event)
	}
	return env
}

// ExpectNoEvent asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no event, but received one")
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of events: %v", err)
}

// DecodeData unmarshals an envelope payload into dst.
func DecodeData(t *testing.T, env relay.Envelope, dst any) {
	t.Helper()

	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", env.Event, err)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
