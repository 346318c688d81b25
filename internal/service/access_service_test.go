package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/model"
	"studyroom/internal/repository"
)

func seedRoom(t *testing.T, repo *repository.MemoryRoomRepo, room *model.Room) *model.Room {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), room))
	return room
}

func TestVerifyAccess(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRoomRepo()
	svc := NewAccessService(repo)

	public := seedRoom(t, repo, &model.Room{Name: "Open", CreatorID: "creator", Privacy: model.RoomPublic, Participants: []string{"creator"}})
	private := seedRoom(t, repo, &model.Room{Name: "Closed", CreatorID: "creator", Privacy: model.RoomPrivate, Code: "1234", Participants: []string{"creator"}})

	tests := []struct {
		name    string
		roomID  string
		userID  string
		code    string
		allowed bool
		reason  string
	}{
		{"missing room", "nope", "u1", "", false, ReasonNotFound},
		{"public room", public.ID, "u1", "", true, ""},
		{"creator without code", private.ID, "creator", "", true, ""},
		{"creator with wrong code", private.ID, "creator", "9999", true, ""},
		{"correct code", private.ID, "u2", "1234", true, ""},
		{"longer code", private.ID, "u3", "12345", false, ReasonWrongCode},
		{"empty code", private.ID, "u3", "", false, ReasonWrongCode},
		{"padded code", private.ID, "u3", " 1234", false, ReasonWrongCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.VerifyAccess(ctx, tt.roomID, tt.userID, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, res.Allowed)
			assert.Equal(t, tt.reason, res.Reason)
			if tt.allowed {
				require.NotNil(t, res.Room)
			}
		})
	}
}

func TestVerifyAccessRecordsParticipantOnce(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRoomRepo()
	svc := NewAccessService(repo)
	room := seedRoom(t, repo, &model.Room{Name: "Closed", CreatorID: "c", Privacy: model.RoomPrivate, Code: "abc", Participants: []string{"c"}})

	for i := 0; i < 3; i++ {
		res, err := svc.VerifyAccess(ctx, room.ID, "u1", "abc")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "u1"}, got.Participants)

	_, err = svc.VerifyAccess(ctx, room.ID, "u2", "ABC")
	require.NoError(t, err)
	got, _ = repo.GetByID(ctx, room.ID)
	assert.NotContains(t, got.Participants, "u2")
}

func TestVerifyAccessSeesCodeChanges(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRoomRepo()
	svc := NewAccessService(repo)
	room := seedRoom(t, repo, &model.Room{Name: "Closed", CreatorID: "c", Privacy: model.RoomPrivate, Code: "old"})

	res, _ := svc.VerifyAccess(ctx, room.ID, "u1", "old")
	assert.True(t, res.Allowed)

	require.NoError(t, repo.UpdateCode(ctx, room.ID, "new"))
	res, _ = svc.VerifyAccess(ctx, room.ID, "u9", "old")
	assert.False(t, res.Allowed)
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRoomRepo()
	svc := NewAccessService(repo)
	room := seedRoom(t, repo, &model.Room{Name: "Closed", CreatorID: "c", Privacy: model.RoomPrivate, Code: "x"})

	info, err := svc.Describe(ctx, room.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, &AccessInfo{RoomName: "Closed", IsPrivate: true, IsCreator: true, RequiresCode: false}, info)

	info, err = svc.Describe(ctx, room.ID, "other")
	require.NoError(t, err)
	assert.True(t, info.RequiresCode)

	info, err = svc.Describe(ctx, "missing", "c")
	require.NoError(t, err)
	assert.Nil(t, info)
}
