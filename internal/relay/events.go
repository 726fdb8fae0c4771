// Package relay defines the wire-level event types exchanged with connected
// clients and the typed payloads each event carries.
package relay

import "encoding/json"

// Inbound event names pushed by clients.
const (
	EventJoinChannel  = "join_channel"
	EventLeaveChannel = "leave_channel"
	EventNewMessage   = "new_message"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventIceCandidate = "ice_candidate"
)

// Outbound event names emitted to clients. Offers and answers reuse the
// inbound names; the candidate event is hyphenated on the way out because
// deployed clients listen for both spellings.
const (
	EventMessageReceived = "message-received"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventIceCandidateOut = "ice-candidate"
)

// Envelope is the single frame format used in both directions: an event name
// plus an event-specific payload that is decoded once the name is known.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound frame before marshaling. Data holds one of the typed
// payloads below, or an opaque json.RawMessage for relayed content.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Sink is the delivery capability a transport session exposes to the relay.
// Deliver must not block; a push that cannot be completed is dropped.
type Sink interface {
	Deliver(evt Event)
}

// JoinChannelPayload asks to join a chat channel inside a server.
type JoinChannelPayload struct {
	ServerName  string `json:"serverName" validate:"required"`
	ChannelName string `json:"channelName" validate:"required"`
}

// LeaveChannelPayload asks to leave a chat channel.
type LeaveChannelPayload struct {
	ServerName  string `json:"serverName" validate:"required"`
	ChannelName string `json:"channelName" validate:"required"`
}

// NewMessagePayload carries a chat message to fan out to a channel. The
// message body is opaque to the relay and forwarded verbatim.
type NewMessagePayload struct {
	ServerName  string          `json:"serverName" validate:"required"`
	ChannelName string          `json:"channelName" validate:"required"`
	Message     json.RawMessage `json:"message" validate:"required"`
}

// JoinRoomPayload asks to join a video-call room.
type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// LeaveRoomPayload asks to leave a video-call room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// OfferPayload carries a WebRTC offer for one target connection.
type OfferPayload struct {
	To    string          `json:"to" validate:"required"`
	Offer json.RawMessage `json:"offer" validate:"required"`
}

// AnswerPayload carries a WebRTC answer for one target connection.
type AnswerPayload struct {
	To     string          `json:"to" validate:"required"`
	Answer json.RawMessage `json:"answer" validate:"required"`
}

// IceCandidatePayload carries an ICE candidate for one target connection.
type IceCandidatePayload struct {
	To        string          `json:"to" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

// UserJoinedPayload announces a new video-room member to the existing ones.
type UserJoinedPayload struct {
	UserID string `json:"userId"`
	ConnID string `json:"connId"`
}

// UserLeftPayload announces a departed video-room member.
type UserLeftPayload struct {
	ConnID string `json:"connId"`
}

// OfferForward is an offer re-emitted to its target, tagged with the sender.
type OfferForward struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

// AnswerForward is an answer re-emitted to its target, tagged with the sender.
type AnswerForward struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

// CandidateForward is an ICE candidate re-emitted to its target, tagged with
// the sender.
type CandidateForward struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}
