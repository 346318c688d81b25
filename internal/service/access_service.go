package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"studyroom/internal/model"
	"studyroom/internal/repository"
)

// Denial reasons shown to the client in roomAccessDenied
const (
	ReasonNotFound    = "Room not found"
	ReasonWrongCode   = "Incorrect room code"
	ReasonServerError = "Server error"
)

// AccessResult is the outcome of a pre-join check
type AccessResult struct {
	Allowed bool
	Reason  string
	Room    *model.Room
}

// AccessInfo answers checkRoomAccess before the client picks a code
type AccessInfo struct {
	RoomName     string `json:"roomName"`
	IsPrivate    bool   `json:"isPrivate"`
	IsCreator    bool   `json:"isCreator"`
	RequiresCode bool   `json:"requiresCode"`
}

// AccessService gates room joins against the persisted room. Results are
// never cached so privacy and code changes apply to the next attempt.
type AccessService struct {
	rooms repository.RoomRepo
}

// NewAccessService creates a new access service
func NewAccessService(rooms repository.RoomRepo) *AccessService {
	return &AccessService{rooms: rooms}
}

// VerifyAccess decides whether userID may join roomID with the supplied code.
// Storage failures deny with ReasonServerError and return the error.
func (s *AccessService) VerifyAccess(ctx context.Context, roomID, userID, code string) (*AccessResult, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return &AccessResult{Reason: ReasonServerError}, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return &AccessResult{Reason: ReasonNotFound}, nil
	}

	switch {
	case !room.IsPrivate():
	case room.CreatorID == userID:
	case code != "" && code == room.Code:
	default:
		return &AccessResult{Reason: ReasonWrongCode, Room: room}, nil
	}

	if !room.HasParticipant(userID) {
		if err := s.rooms.AddParticipant(ctx, roomID, userID); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("failed to record participant")
		} else {
			room.Participants = append(room.Participants, userID)
		}
	}

	return &AccessResult{Allowed: true, Room: room}, nil
}

// Describe returns what the client needs to decide whether to prompt for a
// code. A nil result means the room does not exist.
func (s *AccessService) Describe(ctx context.Context, roomID, userID string) (*AccessInfo, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, nil
	}

	isCreator := room.CreatorID == userID
	return &AccessInfo{
		RoomName:     room.Name,
		IsPrivate:    room.IsPrivate(),
		IsCreator:    isCreator,
		RequiresCode: room.IsPrivate() && !isCreator,
	}, nil
}
