package coordinator

import (
	"sort"

	"studyroom/internal/model"
)

// Registry maps room ids to live sessions. It is owned by one Coordinator
// and, like the sessions it holds, is only used from the event loop.
type Registry struct {
	rooms map[string]*RoomSession
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*RoomSession)}
}

// GetOrCreate returns the live session for seed.ID, creating it from the
// persisted room if there is none. The bool reports whether it was created.
func (r *Registry) GetOrCreate(seed *model.Room) (*RoomSession, bool) {
	if s, ok := r.rooms[seed.ID]; ok {
		return s, false
	}
	s := newRoomSession(seed)
	r.rooms[seed.ID] = s
	return s, true
}

func (r *Registry) Get(roomID string) (*RoomSession, bool) {
	s, ok := r.rooms[roomID]
	return s, ok
}

func (r *Registry) Remove(roomID string) {
	delete(r.rooms, roomID)
}

func (r *Registry) Len() int {
	return len(r.rooms)
}

// IDs returns a sorted snapshot of live room ids
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
