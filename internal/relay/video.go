// Package relay implements the video dimension: call-room membership
// announcements and point-to-point WebRTC signaling forwards.
package relay

import "encoding/json"

// JoinRoom moves connID into the video room roomID. Membership in a different
// video room is superseded first, without notifying the old room. Existing
// members of the target room receive a user-joined announcement; the joiner
// itself receives none.
func (r *Relay) JoinRoom(connID, roomID, userID string) {
	if roomID == "" || userID == "" {
		r.log.Warn("ignoring room join with missing fields", "conn", connID)
		return
	}

	r.mu.Lock()
	if prev, ok := r.registry.VideoRoom(connID); ok && prev != roomID {
		r.rooms.Leave(CategoryVideo, prev, connID)
	}
	r.rooms.Join(CategoryVideo, roomID, connID)
	r.registry.SetVideoRoom(connID, roomID)
	others := r.sinksFor(CategoryVideo, roomID, connID)
	r.mu.Unlock()

	deliverAll(others, Event{Event: EventUserJoined, Data: UserJoinedPayload{UserID: userID, ConnID: connID}})
	r.log.Info("joined video room", "conn", connID, "room", roomID, "user", userID)
}

// LeaveRoom removes connID from the video room roomID, clears its video
// record, and announces the departure to the remaining members.
func (r *Relay) LeaveRoom(connID, roomID string) {
	if roomID == "" {
		r.log.Warn("ignoring room leave with missing room id", "conn", connID)
		return
	}

	r.mu.Lock()
	r.rooms.Leave(CategoryVideo, roomID, connID)
	r.registry.ClearVideoRoom(connID)
	remaining := r.sinksFor(CategoryVideo, roomID)
	r.mu.Unlock()

	deliverAll(remaining, Event{Event: EventUserLeft, Data: UserLeftPayload{ConnID: connID}})
	r.log.Info("left video room", "conn", connID, "room", roomID)
}

// ForwardOffer delivers a WebRTC offer to exactly the target connection,
// tagged with the sender.
func (r *Relay) ForwardOffer(fromConnID, toConnID string, offer json.RawMessage) {
	r.forward(toConnID, Event{Event: EventOffer, Data: OfferForward{From: fromConnID, Offer: offer}})
}

// ForwardAnswer delivers a WebRTC answer to exactly the target connection,
// tagged with the sender.
func (r *Relay) ForwardAnswer(fromConnID, toConnID string, answer json.RawMessage) {
	r.forward(toConnID, Event{Event: EventAnswer, Data: AnswerForward{From: fromConnID, Answer: answer}})
}

// ForwardIceCandidate delivers an ICE candidate to exactly the target
// connection, tagged with the sender.
func (r *Relay) ForwardIceCandidate(fromConnID, toConnID string, candidate json.RawMessage) {
	r.forward(toConnID, Event{Event: EventIceCandidateOut, Data: CandidateForward{From: fromConnID, Candidate: candidate}})
}

// forward pushes evt to a single connection. No room-membership check is made:
// validation of who may signal whom is the caller's concern. A target that is
// not a live connection means the delivery silently fails.
func (r *Relay) forward(toConnID string, evt Event) {
	r.mu.Lock()
	sink, ok := r.registry.Sink(toConnID)
	r.mu.Unlock()

	if !ok {
		r.log.Debug("dropping forward to unknown connection", "to", toConnID, "event", evt.Event)
		return
	}
	sink.Deliver(evt)
}
