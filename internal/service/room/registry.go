package room

import "sync"

// registry is the process-wide live-membership state: which members are
// connected to which room and their current role flags. It is rebuilt
// incrementally from join/leave events and never persisted.
//
// Two levels of locking: registry.mu guards the maps themselves, while
// each roomState carries an opMu that serializes multi-step mutating
// operations (join, leave, leader transfer, queue edits) on one room.
// Callers must not hold opMu while waiting on another client's reply.
type registry struct {
	mu     sync.RWMutex
	rooms  map[string]*roomState
	byUser map[string]string
}

type roomState struct {
	opMu    sync.Mutex
	order   []string
	members map[string]*Member
}

func newRegistry() *registry {
	return &registry{
		rooms:  make(map[string]*roomState),
		byUser: make(map[string]string),
	}
}

func (r *registry) room(roomID string) *roomState {
	state, ok := r.rooms[roomID]
	if !ok {
		state = &roomState{members: make(map[string]*Member)}
		r.rooms[roomID] = state
	}

	return state
}

// lockRoom serializes mutating operations on one room. Room lock
// entries live for the process lifetime; an emptied room keeps its
// entry so a concurrent operation never observes a vanished lock.
func (r *registry) lockRoom(roomID string) func() {
	r.mu.Lock()
	state := r.room(roomID)
	r.mu.Unlock()

	state.opMu.Lock()
	return state.opMu.Unlock
}

// add registers a member into its room. A live session with the same
// identity in any room is evicted first: its record is dropped and a
// copy is returned along with the room it occupied, so the caller can
// terminate the stale connection and refresh that room's member list.
func (r *registry) add(m Member, roomID string) (evicted *Member, evictedRoomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if oldRoomID, ok := r.byUser[m.ID]; ok {
		old := r.removeLocked(oldRoomID, m.ID)
		evicted = old
		evictedRoomID = oldRoomID
	}

	state := r.room(roomID)
	member := m
	state.members[m.ID] = &member
	state.order = append(state.order, m.ID)
	r.byUser[m.ID] = roomID

	return evicted, evictedRoomID
}

func (r *registry) removeLocked(roomID, userID string) *Member {
	state, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	member, ok := state.members[userID]
	if !ok {
		return nil
	}

	delete(state.members, userID)
	for i, id := range state.order {
		if id == userID {
			state.order = append(state.order[:i], state.order[i+1:]...)
			break
		}
	}
	delete(r.byUser, userID)

	removed := *member
	return &removed
}

// remove drops a member from its room, reporting the removed record and
// whether the room is now empty. A nil member means the target was
// already gone (e.g. a duplicate-session eviction processed it first).
func (r *registry) remove(roomID, userID string) (removed *Member, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed = r.removeLocked(roomID, userID)
	state, ok := r.rooms[roomID]
	empty = !ok || len(state.members) == 0

	return removed, empty
}

func (r *registry) roomOf(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byUser[userID]
}

// snapshot returns the room's members in join order, reduced to their
// public fields.
func (r *registry) snapshot(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return []Member{}
	}

	members := make([]Member, 0, len(state.order))
	for _, id := range state.order {
		if member, ok := state.members[id]; ok {
			members = append(members, *member)
		}
	}

	return members
}

func (r *registry) size(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return 0
	}

	return len(state.members)
}

func (r *registry) find(roomID, userID string) (Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return Member{}, ErrMemberNotFound
	}

	member, ok := state.members[userID]
	if !ok {
		return Member{}, ErrMemberNotFound
	}

	return *member, nil
}

func (r *registry) leader(roomID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return Member{}, false
	}

	for _, member := range state.members {
		if member.IsLeader {
			return *member, true
		}
	}

	return Member{}, false
}

// setLeader flips the live leader flags: oldLeaderID (when non-empty)
// loses the flag, newLeaderID gains it. Callers commit the persisted
// side first.
func (r *registry) setLeader(roomID, oldLeaderID, newLeaderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if oldLeaderID != "" {
		if member, ok := state.members[oldLeaderID]; ok {
			member.IsLeader = false
		}
	}
	if member, ok := state.members[newLeaderID]; ok {
		member.IsLeader = true
	}
}

func (r *registry) setModerator(roomID, userID string, isModerator bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if member, ok := state.members[userID]; ok {
		member.IsModerator = isModerator
	}
}
