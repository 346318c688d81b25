package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/model"
	"studyroom/internal/repository"
)

func TestNextStreak(t *testing.T) {
	now := time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC)
	at := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name    string
		last    *time.Time
		current int
		want    int
	}{
		{"first session", nil, 0, 1},
		{"same day keeps streak", at(now.Add(-2 * time.Hour)), 3, 3},
		{"yesterday extends", at(time.Date(2025, 5, 9, 23, 59, 0, 0, time.UTC)), 3, 4},
		{"yesterday early morning extends", at(time.Date(2025, 5, 9, 0, 1, 0, 0, time.UTC)), 1, 2},
		{"two days ago resets", at(time.Date(2025, 5, 8, 12, 0, 0, 0, time.UTC)), 7, 1},
		{"month boundary", at(time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)), 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStreak(tt.last, tt.current, now))
		})
	}
}

func TestNextStreakAcrossMonth(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	last := time.Date(2025, 2, 28, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, 6, nextStreak(&last, 5, now))
}

func TestRecordStudySession(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStatsService(users, nil, clock)

	user := &model.User{Username: "ana", Email: "ana@x.io"}
	require.NoError(t, users.Create(ctx, user))

	require.NoError(t, svc.RecordStudySession(ctx, user.ID, "ana", 25))
	clock.Advance(24 * time.Hour)
	require.NoError(t, svc.RecordStudySession(ctx, user.ID, "ana", 25))

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.TotalSessions)
	assert.Equal(t, 50, got.Stats.TotalMinutesStudied)
	assert.Equal(t, 2, got.Stats.CurrentStreak)

	err = svc.RecordStudySession(ctx, "ghost", "", 25)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordStudySessionConcurrentCredits(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	svc := NewStatsService(users, nil, clock)

	user := &model.User{Username: "ana", Email: "ana@x.io"}
	require.NoError(t, users.Create(ctx, user))

	// one credit per room finishing a study phase in the same tick
	const rooms = 8
	var wg sync.WaitGroup
	for i := 0; i < rooms; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordStudySession(ctx, user.ID, "ana", 25))
		}()
	}
	wg.Wait()

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rooms, got.Stats.TotalSessions)
	assert.Equal(t, rooms*25, got.Stats.TotalMinutesStudied)
	assert.Equal(t, 1, got.Stats.CurrentStreak)
	require.NotNil(t, got.Stats.LastStudyDate)
	assert.True(t, clock.Now().Equal(*got.Stats.LastStudyDate))
}
