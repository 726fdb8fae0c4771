// Package relay tracks per-connection state: the delivery sink handed over by
// the transport and the chat/video rooms the connection currently occupies.
package relay

// Registry is the single source of truth for what rooms a connection is in.
// A connection holds at most one chat room and at most one video room at a
// time; the two dimensions are independent.
//
// Registry does no locking of its own. Every mutation runs under the Relay
// mutex so that composite operations (supersede-join, disconnect cleanup)
// stay atomic with the room index.
type Registry struct {
	sinks      map[string]Sink
	chatRooms  map[string]string
	videoRooms map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sinks:      make(map[string]Sink),
		chatRooms:  make(map[string]string),
		videoRooms: make(map[string]string),
	}
}

// AddConnection records the delivery sink for a freshly connected session.
func (r *Registry) AddConnection(connID string, sink Sink) {
	r.sinks[connID] = sink
}

// Sink resolves a connection ID to its delivery sink.
func (r *Registry) Sink(connID string) (Sink, bool) {
	sink, ok := r.sinks[connID]
	return sink, ok
}

// SetChatRoom overwrites the chat-room record for connID.
func (r *Registry) SetChatRoom(connID, roomKey string) {
	r.chatRooms[connID] = roomKey
}

// ChatRoom returns the chat room connID currently occupies, if any.
func (r *Registry) ChatRoom(connID string) (string, bool) {
	key, ok := r.chatRooms[connID]
	return key, ok
}

// ClearChatRoom drops the chat-room record for connID.
func (r *Registry) ClearChatRoom(connID string) {
	delete(r.chatRooms, connID)
}

// SetVideoRoom overwrites the video-room record for connID.
func (r *Registry) SetVideoRoom(connID, roomKey string) {
	r.videoRooms[connID] = roomKey
}

// VideoRoom returns the video room connID currently occupies, if any.
func (r *Registry) VideoRoom(connID string) (string, bool) {
	key, ok := r.videoRooms[connID]
	return key, ok
}

// ClearVideoRoom drops the video-room record for connID.
func (r *Registry) ClearVideoRoom(connID string) {
	delete(r.videoRooms, connID)
}

// Clear removes every record for connID and returns the chat and video room
// keys it held (empty strings when it held none), so the caller can perform
// the symmetric cleanup in the room index. Calling Clear twice is safe.
func (r *Registry) Clear(connID string) (chatKey, videoKey string) {
	chatKey = r.chatRooms[connID]
	videoKey = r.videoRooms[connID]
	delete(r.chatRooms, connID)
	delete(r.videoRooms, connID)
	delete(r.sinks, connID)
	return chatKey, videoKey
}
