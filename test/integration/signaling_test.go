package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gamehubhq/relay-server/internal/relay"
	"github.com/gamehubhq/relay-server/test/testhelpers"
)

type joinRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// fetchVideoRooms reads the active video room list from the /rooms endpoint.
func fetchVideoRooms(t *testing.T, testServer *httptest.Server) []string {
	t.Helper()

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/rooms")
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var rooms []string
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("Failed to decode rooms response: %v", err)
	}
	return rooms
}

// waitForVideoRoom polls /rooms until roomID appears, serving as a barrier
// for a join pushed on another connection.
func waitForVideoRoom(t *testing.T, testServer *httptest.Server, roomID string) {
	t.Helper()

	deadline := time.Now().Add(receiveTimeout)
	for time.Now().Before(deadline) {
		if slices.Contains(fetchVideoRooms(t, testServer), roomID) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Room %q never appeared in /rooms", roomID)
}

func waitForVideoRoomGone(t *testing.T, testServer *httptest.Server, roomID string) {
	t.Helper()

	deadline := time.Now().Add(receiveTimeout)
	for time.Now().Before(deadline) {
		if !slices.Contains(fetchVideoRooms(t, testServer), roomID) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Room %q still listed in /rooms", roomID)
}

func TestJoinRoomAnnouncesToExistingMembersOnly(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	connX := testhelpers.ConnectWebSocket(t, testServer)
	connY := testhelpers.ConnectWebSocket(t, testServer)
	connZ := testhelpers.ConnectWebSocket(t, testServer)

	testhelpers.SendEvent(t, connX, "join_room", joinRoom{RoomID: "abc", UserID: "user-x"})
	waitForVideoRoom(t, testServer, "abc")

	testhelpers.SendEvent(t, connY, "join_room", joinRoom{RoomID: "abc", UserID: "user-y"})
	env := testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout)

	var joined relay.UserJoinedPayload
	testhelpers.DecodeData(t, env, &joined)
	if joined.UserID != "user-y" {
		t.Errorf("Expected announcement for user-y, got %q", joined.UserID)
	}
	if joined.ConnID == "" {
		t.Error("Announcement is missing the connection id")
	}

	testhelpers.SendEvent(t, connZ, "join_room", joinRoom{RoomID: "abc", UserID: "user-z"})
	testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout)
	testhelpers.ExpectEvent(t, connY, "user-joined", receiveTimeout)

	// The joiner itself never hears about its own arrival.
	testhelpers.ExpectNoEvent(t, connZ, silenceTimeout)
}

func TestSignalingForwardsAreDirected(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	connX := testhelpers.ConnectWebSocket(t, testServer)
	connY := testhelpers.ConnectWebSocket(t, testServer)

	testhelpers.SendEvent(t, connX, "join_room", joinRoom{RoomID: "call-1", UserID: "user-x"})
	waitForVideoRoom(t, testServer, "call-1")
	testhelpers.SendEvent(t, connY, "join_room", joinRoom{RoomID: "call-1", UserID: "user-y"})

	var yJoined relay.UserJoinedPayload
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout), &yJoined)

	// X opens the handshake towards Y.
	testhelpers.SendEvent(t, connX, "offer", map[string]any{
		"to":    yJoined.ConnID,
		"offer": map[string]string{"type": "offer", "sdp": "v=0 x-side"},
	})

	var offer relay.OfferForward
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connY, "offer", receiveTimeout), &offer)
	if offer.From == "" {
		t.Error("Forwarded offer is missing the sender connection id")
	}
	if string(offer.Offer) == "" {
		t.Error("Forwarded offer lost its SDP body")
	}

	// Y answers back using the sender id it just learned.
	testhelpers.SendEvent(t, connY, "answer", map[string]any{
		"to":     offer.From,
		"answer": map[string]string{"type": "answer", "sdp": "v=0 y-side"},
	})

	var answer relay.AnswerForward
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "answer", receiveTimeout), &answer)
	if answer.From != yJoined.ConnID {
		t.Errorf("Answer tagged with sender %q, want %q", answer.From, yJoined.ConnID)
	}

	// Candidates arrive under the hyphenated event name.
	testhelpers.SendEvent(t, connY, "ice_candidate", map[string]any{
		"to":        offer.From,
		"candidate": map[string]string{"candidate": "candidate:0 1 udp 1 10.0.0.1 5000 typ host"},
	})

	var candidate relay.CandidateForward
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "ice-candidate", receiveTimeout), &candidate)
	if candidate.From != yJoined.ConnID {
		t.Errorf("Candidate tagged with sender %q, want %q", candidate.From, yJoined.ConnID)
	}
}

func TestLeaveRoomAnnouncesDeparture(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	connX := testhelpers.ConnectWebSocket(t, testServer)
	connY := testhelpers.ConnectWebSocket(t, testServer)

	testhelpers.SendEvent(t, connX, "join_room", joinRoom{RoomID: "call-2", UserID: "user-x"})
	waitForVideoRoom(t, testServer, "call-2")
	testhelpers.SendEvent(t, connY, "join_room", joinRoom{RoomID: "call-2", UserID: "user-y"})

	var yJoined relay.UserJoinedPayload
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout), &yJoined)

	testhelpers.SendEvent(t, connY, "leave_room", map[string]string{"roomId": "call-2"})

	var left relay.UserLeftPayload
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "user-left", receiveTimeout), &left)
	if left.ConnID != yJoined.ConnID {
		t.Errorf("Departure announced for %q, want %q", left.ConnID, yJoined.ConnID)
	}
}

func TestDisconnectAnnouncesDepartureToVideoRoom(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	connX := testhelpers.ConnectWebSocket(t, testServer)
	connY := testhelpers.ConnectWebSocket(t, testServer)

	testhelpers.SendEvent(t, connX, "join_room", joinRoom{RoomID: "call-3", UserID: "user-x"})
	waitForVideoRoom(t, testServer, "call-3")
	testhelpers.SendEvent(t, connY, "join_room", joinRoom{RoomID: "call-3", UserID: "user-y"})

	var yJoined relay.UserJoinedPayload
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "user-joined", receiveTimeout), &yJoined)

	if err := testhelpers.CloseWebSocket(connY); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}

	var left relay.UserLeftPayload
	testhelpers.DecodeData(t,
		testhelpers.ExpectEvent(t, connX, "user-left", receiveTimeout), &left)
	if left.ConnID != yJoined.ConnID {
		t.Errorf("Departure announced for %q, want %q", left.ConnID, yJoined.ConnID)
	}
}

func TestRoomsEndpointTracksRoomLifecycle(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	conn := testhelpers.ConnectWebSocket(t, testServer)

	testhelpers.SendEvent(t, conn, "join_room", joinRoom{RoomID: "lobby", UserID: "user-a"})
	waitForVideoRoom(t, testServer, "lobby")

	testhelpers.SendEvent(t, conn, "leave_room", map[string]string{"roomId": "lobby"})
	waitForVideoRoomGone(t, testServer, "lobby")
}
