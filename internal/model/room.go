package model

import "time"

type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	RoomEnded  RoomStatus = "ended"
)

type RoomPrivacy string

const (
	RoomPublic  RoomPrivacy = "public"
	RoomPrivate RoomPrivacy = "private"
)

// DefaultTotalSessions is used when a room is created without a session target
const DefaultTotalSessions = 4

// Room is the persisted configuration of a study room
type Room struct {
	ID            string      `json:"id" bson:"_id"`
	Name          string      `json:"name" bson:"name"`
	CreatorID     string      `json:"creator" bson:"creator"`
	StudyInterval int         `json:"studyInterval" bson:"studyInterval"` // minutes
	BreakInterval int         `json:"breakInterval" bson:"breakInterval"` // minutes
	TotalSessions int         `json:"totalSessions" bson:"totalSessions"`
	Privacy       RoomPrivacy `json:"privacy" bson:"privacy"`
	Code          string      `json:"-" bson:"code,omitempty"`
	Participants  []string    `json:"participants" bson:"participants"`
	Status        RoomStatus  `json:"status" bson:"status"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	EndedAt       *time.Time  `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// IsPrivate reports whether joining requires the room code
func (r *Room) IsPrivate() bool {
	return r.Privacy == RoomPrivate
}

// HasParticipant reports whether userID is in the persisted participant list
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name          string      `json:"name"`
	StudyInterval int         `json:"studyInterval"`
	BreakInterval int         `json:"breakInterval"`
	TotalSessions int         `json:"totalSessions,omitempty"`
	Privacy       RoomPrivacy `json:"privacy"`
	Code          string      `json:"code,omitempty"`
}

// RoomSummary is the dashboard view of a room. Codes are never included.
type RoomSummary struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	CreatorID     string      `json:"creator"`
	Privacy       RoomPrivacy `json:"privacy"`
	StudyInterval int         `json:"studyInterval"`
	BreakInterval int         `json:"breakInterval"`
	Status        RoomStatus  `json:"status"`
	LiveCount     int64       `json:"liveCount"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Dashboard is returned by GET /v1/rooms
type Dashboard struct {
	Username    string        `json:"username"`
	Sessions    int           `json:"sessions"`
	Streak      int           `json:"streak"`
	TimeStudied int           `json:"timeStudied"`
	PublicRooms []RoomSummary `json:"publicRooms"`
	MyRooms     []RoomSummary `json:"myRooms"`
}
