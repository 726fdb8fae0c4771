package integration

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gamehubhq/relay-server/test/testhelpers"
)

func TestBroadcastFansOutToManyClients(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	const numClients = 5
	channel := chatChannel{ServerName: "gamehub", ChannelName: "crowded"}

	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		clients[i] = testhelpers.ConnectWebSocket(t, testServer)
		testhelpers.SendEvent(t, clients[i], "join_channel", channel)
	}
	time.Sleep(joinSettle)

	testhelpers.SendEvent(t, clients[0], "new_message", chatMessage{
		ServerName:  channel.ServerName,
		ChannelName: channel.ChannelName,
		Message:     json.RawMessage(`{"body":"hello everyone"}`),
	})

	for i, conn := range clients {
		env := testhelpers.ExpectEvent(t, conn, "message-received", receiveTimeout)

		var msg struct {
			Body string `json:"body"`
		}
		testhelpers.DecodeData(t, env, &msg)
		if msg.Body != "hello everyone" {
			t.Errorf("Client %d received wrong body: %q", i, msg.Body)
		}
	}
}

func TestEveryMemberCanSendAndReceive(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	const numClients = 3
	channel := chatChannel{ServerName: "gamehub", ChannelName: "roundtrip"}

	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		clients[i] = testhelpers.ConnectWebSocket(t, testServer)
		testhelpers.SendEvent(t, clients[i], "join_channel", channel)
	}
	time.Sleep(joinSettle)

	// Each client sends one message in turn; everyone, sender included,
	// should see all of them.
	for i, sender := range clients {
		testhelpers.SendEvent(t, sender, "new_message", chatMessage{
			ServerName:  channel.ServerName,
			ChannelName: channel.ChannelName,
			Message:     json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)),
		})

		for j, conn := range clients {
			env := testhelpers.ExpectEvent(t, conn, "message-received", receiveTimeout)

			var msg struct {
				Seq int `json:"seq"`
			}
			testhelpers.DecodeData(t, env, &msg)
			if msg.Seq != i {
				t.Errorf("Client %d saw seq %d, want %d", j, msg.Seq, i)
			}
		}
	}
}

func TestChannelsAndVideoRoomsAreIndependent(t *testing.T) {
	testServer, _ := testhelpers.StartRelayServer(t)

	connA := testhelpers.ConnectWebSocket(t, testServer)
	connB := testhelpers.ConnectWebSocket(t, testServer)

	// A sits in a chat channel and a video room at the same time.
	channel := chatChannel{ServerName: "gamehub", ChannelName: "general"}
	testhelpers.SendEvent(t, connA, "join_channel", channel)
	testhelpers.SendEvent(t, connA, "join_room", joinRoom{RoomID: "side-call", UserID: "user-a"})
	waitForVideoRoom(t, testServer, "side-call")

	testhelpers.SendEvent(t, connB, "join_channel", channel)
	time.Sleep(joinSettle)

	// Leaving the video room must not disturb chat delivery.
	testhelpers.SendEvent(t, connA, "leave_room", map[string]string{"roomId": "side-call"})
	waitForVideoRoomGone(t, testServer, "side-call")

	testhelpers.SendEvent(t, connB, "new_message", chatMessage{
		ServerName:  channel.ServerName,
		ChannelName: channel.ChannelName,
		Message:     json.RawMessage(`{"body":"still chatting"}`),
	})
	testhelpers.ExpectEvent(t, connA, "message-received", receiveTimeout)
	testhelpers.ExpectEvent(t, connB, "message-received", receiveTimeout)
}
