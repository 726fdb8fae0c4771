// Package relay implements the chat dimension: channel membership and
// room-wide message fan-out.
package relay

import "encoding/json"

// ChatRoomKey renders a (server, channel) pair as the single string key used
// by the room index.
func ChatRoomKey(serverName, channelName string) string {
	return serverName + ":" + channelName
}

// JoinChannel moves connID into the chat room for (serverName, channelName).
// A connection holds at most one chat room, so joining a different room first
// executes the leave sequence for the old one. Re-joining the current room is
// a no-op at the membership level.
func (r *Relay) JoinChannel(connID, serverName, channelName string) {
	if serverName == "" || channelName == "" {
		r.log.Warn("ignoring channel join with missing names", "conn", connID)
		return
	}
	key := ChatRoomKey(serverName, channelName)

	r.mu.Lock()
	if prev, ok := r.registry.ChatRoom(connID); ok && prev != key {
		r.rooms.Leave(CategoryChat, prev, connID)
	}
	r.rooms.Join(CategoryChat, key, connID)
	r.registry.SetChatRoom(connID, key)
	size := len(r.rooms.Members(CategoryChat, key))
	r.mu.Unlock()

	r.log.Info("joined channel", "conn", connID, "room", key, "members", size)
}

// LeaveChannel removes connID from the chat room for (serverName, channelName)
// and clears its chat record. Missing names are ignored.
func (r *Relay) LeaveChannel(connID, serverName, channelName string) {
	if serverName == "" || channelName == "" {
		r.log.Warn("ignoring channel leave with missing names", "conn", connID)
		return
	}
	key := ChatRoomKey(serverName, channelName)

	r.mu.Lock()
	r.rooms.Leave(CategoryChat, key, connID)
	r.registry.ClearChatRoom(connID)
	r.mu.Unlock()

	r.log.Info("left channel", "conn", connID, "room", key)
}

// BroadcastMessage delivers the opaque message body to every current member of
// the channel, sender included. No ordering is guaranteed across senders; an
// empty room or missing fields make this a no-op.
func (r *Relay) BroadcastMessage(serverName, channelName string, message json.RawMessage) {
	if serverName == "" || channelName == "" || len(message) == 0 {
		r.log.Warn("ignoring broadcast with missing fields")
		return
	}
	key := ChatRoomKey(serverName, channelName)

	r.mu.Lock()
	sinks := r.sinksFor(CategoryChat, key)
	r.mu.Unlock()

	deliverAll(sinks, Event{Event: EventMessageReceived, Data: message})
	r.log.Debug("broadcast message", "room", key, "recipients", len(sinks))
}
