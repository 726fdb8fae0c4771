// Package relay maintains the room-to-members index for both room categories.
package relay

import "github.com/samber/lo"

// Category distinguishes the two independent room namespaces.
type Category int

const (
	// CategoryChat holds channel rooms keyed by "server:channel".
	CategoryChat Category = iota
	// CategoryVideo holds call rooms keyed by a caller-supplied room ID.
	CategoryVideo
)

// RoomIndex maps (category, room key) to the set of member connection IDs.
// A room key exists if and only if its member set is non-empty; leaving the
// last member deletes the room entirely. Absent rooms and members are treated
// as no-ops, never as errors.
//
// Like Registry, RoomIndex relies on the Relay mutex for synchronization.
type RoomIndex struct {
	rooms map[Category]map[string]map[string]struct{}
}

// NewRoomIndex returns an index with both categories initialized.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms: map[Category]map[string]map[string]struct{}{
			CategoryChat:  make(map[string]map[string]struct{}),
			CategoryVideo: make(map[string]map[string]struct{}),
		},
	}
}

// Join adds connID to the member set for (cat, roomKey), creating the room on
// first join. Re-adding an existing member is harmless.
func (x *RoomIndex) Join(cat Category, roomKey, connID string) {
	members, ok := x.rooms[cat][roomKey]
	if !ok {
		members = make(map[string]struct{})
		x.rooms[cat][roomKey] = members
	}
	members[connID] = struct{}{}
}

// Leave removes connID from the member set. When the set becomes empty the
// room key is deleted so no empty rooms linger.
func (x *RoomIndex) Leave(cat Category, roomKey, connID string) {
	members, ok := x.rooms[cat][roomKey]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(x.rooms[cat], roomKey)
	}
}

// Members returns a snapshot of the member connection IDs for (cat, roomKey),
// empty when the room does not exist.
func (x *RoomIndex) Members(cat Category, roomKey string) []string {
	return lo.Keys(x.rooms[cat][roomKey])
}

// Contains reports whether connID is a member of (cat, roomKey).
func (x *RoomIndex) Contains(cat Category, roomKey, connID string) bool {
	_, ok := x.rooms[cat][roomKey][connID]
	return ok
}

// Rooms returns a snapshot of the active room keys in a category.
func (x *RoomIndex) Rooms(cat Category) []string {
	return lo.Keys(x.rooms[cat])
}
