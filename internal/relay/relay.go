// Package relay wires the registry and room index together behind a single
// mutex and dispatches inbound client events to the chat and signaling logic.
package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Relay is the realtime core: it owns the connection registry and the room
// index and serializes every mutation through one mutex, so the two structures
// stay mutually consistent under concurrent joins and disconnects.
//
// Deliveries happen on snapshots taken under the lock and are pushed after it
// is released; Sink.Deliver never blocks, so no I/O runs inside the critical
// section.
type Relay struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *Registry
	rooms    *RoomIndex
	validate *validator.Validate
}

// New creates a relay with empty state.
func New(log *slog.Logger) *Relay {
	return &Relay{
		log:      log,
		registry: NewRegistry(),
		rooms:    NewRoomIndex(),
		validate: validator.New(),
	}
}

// Connect registers a new transport session and its delivery sink. Called by
// the gateway once per connection, before any event for that connection is
// handled.
func (r *Relay) Connect(connID string, sink Sink) {
	r.mu.Lock()
	r.registry.AddConnection(connID, sink)
	r.mu.Unlock()
	r.log.Info("connection registered", "conn", connID)
}

// Disconnect removes a connection from every room it belonged to and clears
// its registry records. Remaining members of its video room are told it left;
// chat rooms get no departure notification. The cleanup is best-effort and
// unconditional: absent rooms are no-ops and calling Disconnect twice is safe.
func (r *Relay) Disconnect(connID string) {
	r.mu.Lock()
	chatKey, videoKey := r.registry.Clear(connID)
	if chatKey != "" {
		r.rooms.Leave(CategoryChat, chatKey, connID)
	}
	var remaining []Sink
	if videoKey != "" {
		r.rooms.Leave(CategoryVideo, videoKey, connID)
		remaining = r.sinksFor(CategoryVideo, videoKey)
	}
	r.mu.Unlock()

	deliverAll(remaining, Event{Event: EventUserLeft, Data: UserLeftPayload{ConnID: connID}})
	r.log.Info("connection cleaned up", "conn", connID, "chatRoom", chatKey, "videoRoom", videoKey)
}

// HandleEvent decodes one inbound frame from connID and dispatches it.
// Malformed frames and payloads with missing required fields are logged and
// dropped; a panic while handling one event is recovered here so it cannot
// take down the relay or affect other connections.
func (r *Relay) HandleEvent(connID string, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("recovered from panic while handling event", "conn", connID, "panic", rec)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.log.Warn("dropping undecodable frame", "conn", connID, "error", err)
		return
	}

	switch env.Event {
	case EventJoinChannel:
		var p JoinChannelPayload
		if r.decode(connID, env, &p) {
			r.JoinChannel(connID, p.ServerName, p.ChannelName)
		}
	case EventLeaveChannel:
		var p LeaveChannelPayload
		if r.decode(connID, env, &p) {
			r.LeaveChannel(connID, p.ServerName, p.ChannelName)
		}
	case EventNewMessage:
		var p NewMessagePayload
		if r.decode(connID, env, &p) {
			r.BroadcastMessage(p.ServerName, p.ChannelName, p.Message)
		}
	case EventJoinRoom:
		var p JoinRoomPayload
		if r.decode(connID, env, &p) {
			r.JoinRoom(connID, p.RoomID, p.UserID)
		}
	case EventLeaveRoom:
		var p LeaveRoomPayload
		if r.decode(connID, env, &p) {
			r.LeaveRoom(connID, p.RoomID)
		}
	case EventOffer:
		var p OfferPayload
		if r.decode(connID, env, &p) {
			r.ForwardOffer(connID, p.To, p.Offer)
		}
	case EventAnswer:
		var p AnswerPayload
		if r.decode(connID, env, &p) {
			r.ForwardAnswer(connID, p.To, p.Answer)
		}
	case EventIceCandidate:
		var p IceCandidatePayload
		if r.decode(connID, env, &p) {
			r.ForwardIceCandidate(connID, p.To, p.Candidate)
		}
	default:
		r.log.Warn("ignoring unknown event", "conn", connID, "event", env.Event)
	}
}

// VideoRoomIDs returns the active video-call room IDs.
func (r *Relay) VideoRoomIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.Rooms(CategoryVideo)
}

// decode unmarshals the envelope payload into dst and validates its required
// fields. Failures are logged and reported as false; nothing is surfaced to
// the sender.
func (r *Relay) decode(connID string, env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		r.log.Warn("dropping event with undecodable payload", "conn", connID, "event", env.Event, "error", err)
		return false
	}
	if err := r.validate.Struct(dst); err != nil {
		r.log.Warn("dropping event with missing fields", "conn", connID, "event", env.Event, "error", err)
		return false
	}
	return true
}

// sinksFor resolves the members of (cat, roomKey) to their sinks, skipping
// any connection listed in exclude. Must be called with the mutex held.
func (r *Relay) sinksFor(cat Category, roomKey string, exclude ...string) []Sink {
	members := r.rooms.Members(cat, roomKey)
	sinks := make([]Sink, 0, len(members))
	for _, connID := range members {
		if len(exclude) > 0 && connID == exclude[0] {
			continue
		}
		if sink, ok := r.registry.Sink(connID); ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// deliverAll pushes evt to every sink, fire-and-forget.
func deliverAll(sinks []Sink, evt Event) {
	for _, sink := range sinks {
		sink.Deliver(evt)
	}
}
