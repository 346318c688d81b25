package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"studyroom/internal/cache"
	"studyroom/internal/config"
	"studyroom/internal/model"
	"studyroom/internal/repository"
)

// RoomService handles the REST side of room lifecycle. Live room state is
// owned by the coordinator; this service only touches persisted rooms.
type RoomService struct {
	roomRepo repository.RoomRepo
	userRepo repository.UserRepo
	presence cache.PresenceCache
	limits   config.RoomLimits
}

// NewRoomService creates a new room service
func NewRoomService(roomRepo repository.RoomRepo, userRepo repository.UserRepo, limits config.RoomLimits) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
		limits:   limits,
	}
}

// SetPresence sets the live-count source for dashboard listings
func (s *RoomService) SetPresence(p cache.PresenceCache) {
	s.presence = p
}

// CreateRoom validates and persists a new room owned by creatorID
func (s *RoomService) CreateRoom(ctx context.Context, creatorID string, req *model.CreateRoomRequest) (*model.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if len(name) > s.limits.MaxNameLength {
		return nil, fmt.Errorf("%w: room name max %d chars", ErrValidation, s.limits.MaxNameLength)
	}
	if !s.limits.ValidStudy(req.StudyInterval) {
		return nil, fmt.Errorf("%w: study interval %d-%d min", ErrValidation, s.limits.MinStudyMinutes, s.limits.MaxStudyMinutes)
	}
	if !s.limits.ValidBreak(req.BreakInterval) {
		return nil, fmt.Errorf("%w: break interval %d-%d min", ErrValidation, s.limits.MinBreakMinutes, s.limits.MaxBreakMinutes)
	}

	total := req.TotalSessions
	if total == 0 {
		total = model.DefaultTotalSessions
	}
	if total < 1 || total > s.limits.MaxTotalSessions {
		return nil, fmt.Errorf("%w: total sessions 1-%d", ErrValidation, s.limits.MaxTotalSessions)
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = model.RoomPublic
	}
	if privacy != model.RoomPublic && privacy != model.RoomPrivate {
		return nil, fmt.Errorf("%w: privacy must be public or private", ErrValidation)
	}

	room := &model.Room{
		Name:          name,
		CreatorID:     creatorID,
		StudyInterval: req.StudyInterval,
		BreakInterval: req.BreakInterval,
		TotalSessions: total,
		Privacy:       privacy,
		Participants:  []string{creatorID},
		Status:        model.RoomActive,
	}
	if privacy == model.RoomPrivate {
		// stored as typed; joins compare it exactly
		if strings.TrimSpace(req.Code) == "" {
			return nil, fmt.Errorf("%w: room code is required for private rooms", ErrValidation)
		}
		room.Code = req.Code
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

// GetRoom returns a room visible to userID. Private rooms are only visible
// to their creator and recorded participants.
func (s *RoomService) GetRoom(ctx context.Context, roomID, userID string) (*model.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.IsPrivate() && room.CreatorID != userID && !room.HasParticipant(userID) {
		return room, ErrAccessDenied
	}
	return room, nil
}

// Dashboard lists public active rooms and the user's own rooms with stats
func (s *RoomService) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}

	public, err := s.roomRepo.ListActivePublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	mine, err := s.roomRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rooms: %w", err)
	}

	counts := s.liveCounts(ctx, public, mine)
	return &model.Dashboard{
		Username:    user.Username,
		Sessions:    user.Stats.TotalSessions,
		Streak:      user.Stats.CurrentStreak,
		TimeStudied: user.Stats.TotalMinutesStudied,
		PublicRooms: summarize(public, counts),
		MyRooms:     summarize(mine, counts),
	}, nil
}

func (s *RoomService) liveCounts(ctx context.Context, lists ...[]*model.Room) map[string]int64 {
	if s.presence == nil {
		return nil
	}
	var ids []string
	for _, rooms := range lists {
		for _, r := range rooms {
			ids = append(ids, r.ID)
		}
	}
	counts, err := s.presence.LiveCounts(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read live counts")
		return nil
	}
	return counts
}

func summarize(rooms []*model.Room, counts map[string]int64) []model.RoomSummary {
	out := make([]model.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, model.RoomSummary{
			ID:            r.ID,
			Name:          r.Name,
			CreatorID:     r.CreatorID,
			Privacy:       r.Privacy,
			StudyInterval: r.StudyInterval,
			BreakInterval: r.BreakInterval,
			Status:        r.Status,
			LiveCount:     counts[r.ID],
			CreatedAt:     r.CreatedAt,
		})
	}
	return out
}
