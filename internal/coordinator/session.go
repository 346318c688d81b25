package coordinator

import "studyroom/internal/model"

// RoomSession is the live state of one room. It is only touched from the
// coordinator's event loop.
type RoomSession struct {
	ID           string
	Name         string
	CreatorID    string
	Private      bool
	Code         string
	StudyMinutes int
	BreakMinutes int

	Roster   Roster
	Timer    TimerState
	Progress SessionProgress
}

func newRoomSession(room *model.Room) *RoomSession {
	total := room.TotalSessions
	if total <= 0 {
		total = model.DefaultTotalSessions
	}
	return &RoomSession{
		ID:           room.ID,
		Name:         room.Name,
		CreatorID:    room.CreatorID,
		Private:      room.IsPrivate(),
		Code:         room.Code,
		StudyMinutes: room.StudyInterval,
		BreakMinutes: room.BreakInterval,
		Roster:       newRoster(),
		Timer: TimerState{
			Phase:    PhaseStudy,
			TimeLeft: room.StudyInterval * 60,
		},
		Progress: SessionProgress{Current: 1, Total: total},
	}
}

// RoomSnapshot is the roomData payload
type RoomSnapshot struct {
	RoomID         string        `json:"roomId"`
	Name           string        `json:"name"`
	IsPrivate      bool          `json:"isPrivate"`
	Code           string        `json:"code,omitempty"`
	StudyInterval  int           `json:"studyInterval"`
	BreakInterval  int           `json:"breakInterval"`
	Participants   []Participant `json:"participants"`
	AdminSocketID  string        `json:"adminSocketId"`
	AdminUsername  string        `json:"adminUsername"`
	Timer          TimerState    `json:"timer"`
	CurrentSession int           `json:"currentSession"`
	TotalSessions  int           `json:"totalSessions"`
	CurrentUserID  string        `json:"currentUserId"`
	IsCreator      bool          `json:"isCreator"`
}

// Snapshot renders the room for userID. The code is only included for the creator.
func (s *RoomSession) Snapshot(userID string) RoomSnapshot {
	admin, _ := s.Roster.Admin()
	snap := RoomSnapshot{
		RoomID:         s.ID,
		Name:           s.Name,
		IsPrivate:      s.Private,
		StudyInterval:  s.StudyMinutes,
		BreakInterval:  s.BreakMinutes,
		Participants:   s.Roster.Entries(),
		AdminSocketID:  admin.ConnID,
		AdminUsername:  admin.Username,
		Timer:          s.Timer,
		CurrentSession: s.Progress.Current,
		TotalSessions:  s.Progress.Total,
		CurrentUserID:  userID,
		IsCreator:      userID == s.CreatorID,
	}
	if snap.IsCreator {
		snap.Code = s.Code
	}
	return snap
}
