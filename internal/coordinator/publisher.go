package coordinator

import "time"

// Publisher fans events out to connections. The transport implements it;
// the coordinator never sees sockets. Calls must not block.
type Publisher interface {
	// Publish sends to every connection subscribed to roomID
	Publish(roomID, event string, payload interface{})
	// Send targets a single connection
	Send(connID, event string, payload interface{})
	Subscribe(roomID, connID string)
	Unsubscribe(roomID, connID string)
}

// Client -> server events
const (
	EvCheckRoomAccess      = "checkRoomAccess"
	EvJoinRoom             = "joinRoom"
	EvSendMessage          = "sendMessage"
	EvToggleTimer          = "toggleTimer"
	EvResetTimer           = "resetTimer"
	EvSkipPhase            = "skipPhase"
	EvGetRoomData          = "getRoomData"
	EvUpdateRoomName       = "updateRoomName"
	EvUpdateTimerIntervals = "updateTimerIntervals"
	EvUpdateRoomPassword   = "updateRoomPassword"
	EvKickParticipant      = "kickParticipant"
	EvEndRoom              = "endRoom"
	EvLeaveRoom            = "leaveRoom"
)

// Server -> client events
const (
	EvConnected             = "connected"
	EvRoomAccessInfo        = "roomAccessInfo"
	EvRoomAccessDenied      = "roomAccessDenied"
	EvRoomJoinSuccess       = "roomJoinSuccess"
	EvParticipantsUpdate    = "participantsUpdate"
	EvSystemMessage         = "systemMessage"
	EvNewMessage            = "newMessage"
	EvLoadMessages          = "loadMessages"
	EvTimerUpdate           = "timerUpdate"
	EvSessionUpdate         = "sessionUpdate"
	EvRoomData              = "roomData"
	EvRoomNameUpdated       = "roomNameUpdated"
	EvTimerIntervalsUpdated = "timerIntervalsUpdated"
	EvRoomPasswordUpdated   = "roomPasswordUpdated"
	EvParticipantKicked     = "participantKicked"
	EvYouWereKicked         = "youWereKicked"
	EvRoomEnded             = "roomEnded"
	EvErrorMessage          = "errorMessage"
)

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type joinRequest struct {
	RoomID   string `json:"roomId"`
	RoomCode string `json:"roomCode"`
}

type messageRequest struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type renameRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type intervalsRequest struct {
	RoomID        string `json:"roomId"`
	StudyInterval int    `json:"studyInterval"`
	BreakInterval int    `json:"breakInterval"`
}

type passwordRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
}

type kickRequest struct {
	RoomID   string `json:"roomId"`
	SocketID string `json:"socketId"`
}

type TextPayload struct {
	Text string `json:"text"`
}

type ConnectedPayload struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type AccessDeniedPayload struct {
	Reason string `json:"reason"`
}

type JoinSuccessPayload struct {
	RoomName  string `json:"roomName"`
	RoomID    string `json:"roomId"`
	IsPrivate bool   `json:"isPrivate"`
}

type ParticipantsPayload struct {
	Participants []Participant `json:"participants"`
	AdminID      string        `json:"adminId"`
}

type ChatPayload struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type NamePayload struct {
	Name string `json:"name"`
}

type IntervalsPayload struct {
	StudyInterval int `json:"studyInterval"`
	BreakInterval int `json:"breakInterval"`
}

type CodePayload struct {
	Code string `json:"code"`
}

type KickedPayload struct {
	Username string `json:"username"`
	SocketID string `json:"socketId"`
}

type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}
