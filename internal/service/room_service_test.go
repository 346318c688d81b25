package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/cache"
	"studyroom/internal/config"
	"studyroom/internal/model"
	"studyroom/internal/repository"
)

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	svc := NewRoomService(repository.NewMemoryRoomRepo(), repository.NewMemoryUserRepo(), config.DefaultRoomConfig().Limits)

	room, err := svc.CreateRoom(ctx, "u1", &model.CreateRoomRequest{Name: " Chem ", StudyInterval: 25, BreakInterval: 5})
	require.NoError(t, err)
	assert.Equal(t, "Chem", room.Name)
	assert.Equal(t, model.RoomPublic, room.Privacy)
	assert.Equal(t, model.DefaultTotalSessions, room.TotalSessions)
	assert.Equal(t, []string{"u1"}, room.Participants)
	assert.Empty(t, room.Code)

	invalid := []model.CreateRoomRequest{
		{Name: "", StudyInterval: 25, BreakInterval: 5},
		{Name: "x", StudyInterval: 0, BreakInterval: 5},
		{Name: "x", StudyInterval: 25, BreakInterval: 31},
		{Name: "x", StudyInterval: 25, BreakInterval: 5, TotalSessions: 99},
		{Name: "x", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPrivate},
		{Name: "x", StudyInterval: 25, BreakInterval: 5, Privacy: "secret"},
	}
	for _, req := range invalid {
		_, err := svc.CreateRoom(ctx, "u1", &req)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestCreatePrivateRoomKeepsCodeAsTyped(t *testing.T) {
	ctx := context.Background()
	svc := NewRoomService(repository.NewMemoryRoomRepo(), repository.NewMemoryUserRepo(), config.DefaultRoomConfig().Limits)

	_, err := svc.CreateRoom(ctx, "owner", &model.CreateRoomRequest{Name: "P", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPrivate, Code: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	room, err := svc.CreateRoom(ctx, "owner", &model.CreateRoomRequest{Name: "P", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPrivate, Code: "1234 "})
	require.NoError(t, err)
	assert.Equal(t, "1234 ", room.Code)
}

func TestGetRoomPrivacy(t *testing.T) {
	ctx := context.Background()
	rooms := repository.NewMemoryRoomRepo()
	svc := NewRoomService(rooms, repository.NewMemoryUserRepo(), config.DefaultRoomConfig().Limits)

	room, err := svc.CreateRoom(ctx, "owner", &model.CreateRoomRequest{Name: "P", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPrivate, Code: "1234"})
	require.NoError(t, err)

	_, err = svc.GetRoom(ctx, room.ID, "owner")
	assert.NoError(t, err)

	_, err = svc.GetRoom(ctx, room.ID, "stranger")
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, rooms.AddParticipant(ctx, room.ID, "stranger"))
	_, err = svc.GetRoom(ctx, room.ID, "stranger")
	assert.NoError(t, err)

	_, err = svc.GetRoom(ctx, "missing", "owner")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	rooms := repository.NewMemoryRoomRepo()
	users := repository.NewMemoryUserRepo()
	svc := NewRoomService(rooms, users, config.DefaultRoomConfig().Limits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	presence := cache.NewPresenceCache(rdb)
	svc.SetPresence(presence)

	user := &model.User{Username: "ana", Email: "ana@x.io", Stats: model.StudyStats{TotalSessions: 3, CurrentStreak: 2, TotalMinutesStudied: 75}}
	require.NoError(t, users.Create(ctx, user))

	pub, err := svc.CreateRoom(ctx, "other", &model.CreateRoomRequest{Name: "Open", StudyInterval: 25, BreakInterval: 5})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, user.ID, &model.CreateRoomRequest{Name: "Mine", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPrivate, Code: "c"})
	require.NoError(t, err)
	require.NoError(t, presence.SetLive(ctx, pub.ID, 4))

	dash, err := svc.Dashboard(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", dash.Username)
	assert.Equal(t, 3, dash.Sessions)
	assert.Equal(t, 2, dash.Streak)
	assert.Equal(t, 75, dash.TimeStudied)
	require.Len(t, dash.PublicRooms, 1)
	assert.Equal(t, int64(4), dash.PublicRooms[0].LiveCount)
	require.Len(t, dash.MyRooms, 1)
	assert.Equal(t, "Mine", dash.MyRooms[0].Name)
}
