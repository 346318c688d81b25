package coordinator

// Participant is one live connection in a room
type Participant struct {
	ConnID   string `json:"socketId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Roster is the ordered list of a room's participants. The admin is an index
// into entries, so it can never outlive its entry; admin is -1 exactly when
// the roster is empty.
type Roster struct {
	entries []Participant
	admin   int
}

func newRoster() Roster {
	return Roster{admin: -1}
}

func (r *Roster) Len() int {
	return len(r.entries)
}

// Entries returns a copy in join order
func (r *Roster) Entries() []Participant {
	out := make([]Participant, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Roster) Admin() (Participant, bool) {
	if r.admin < 0 {
		return Participant{}, false
	}
	return r.entries[r.admin], true
}

// AdminID is the admin's connection id, or "" for an empty roster
func (r *Roster) AdminID() string {
	if p, ok := r.Admin(); ok {
		return p.ConnID
	}
	return ""
}

func (r *Roster) IsAdmin(connID string) bool {
	return connID != "" && r.AdminID() == connID
}

func (r *Roster) IndexOfConn(connID string) int {
	for i, p := range r.entries {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r *Roster) IndexOfUser(userID string) int {
	for i, p := range r.entries {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (r *Roster) Get(connID string) (Participant, bool) {
	if i := r.IndexOfConn(connID); i >= 0 {
		return r.entries[i], true
	}
	return Participant{}, false
}

// Join admits p. A user already on the roster keeps their position and has
// their connection replaced; the previous connection id is returned. The
// joiner becomes admin when there is none or when they created the room.
func (r *Roster) Join(p Participant, creatorID string) (replaced string) {
	idx := r.IndexOfUser(p.UserID)
	if idx >= 0 {
		replaced = r.entries[idx].ConnID
		r.entries[idx].ConnID = p.ConnID
		r.entries[idx].Username = p.Username
	} else {
		r.entries = append(r.entries, p)
		idx = len(r.entries) - 1
	}

	if r.admin < 0 || (creatorID != "" && p.UserID == creatorID) {
		r.admin = idx
	}
	return replaced
}

// Remove drops the entry for connID. When the admin leaves, the first
// remaining participant is promoted.
func (r *Roster) Remove(connID string) (removed Participant, wasAdmin bool, ok bool) {
	idx := r.IndexOfConn(connID)
	if idx < 0 {
		return Participant{}, false, false
	}

	removed = r.entries[idx]
	wasAdmin = idx == r.admin
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)

	switch {
	case len(r.entries) == 0:
		r.admin = -1
	case wasAdmin:
		r.admin = 0
	case idx < r.admin:
		r.admin--
	}
	return removed, wasAdmin, true
}
