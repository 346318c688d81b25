package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studyroom/internal/cache"
	"studyroom/internal/repository"
)

// StatsService records completed study phases against user profiles
type StatsService struct {
	users       repository.UserRepo
	leaderboard cache.LeaderboardCache
	clock       clockwork.Clock
}

// NewStatsService creates a new stats service. leaderboard may be nil.
func NewStatsService(users repository.UserRepo, leaderboard cache.LeaderboardCache, clock clockwork.Clock) *StatsService {
	return &StatsService{
		users:       users,
		leaderboard: leaderboard,
		clock:       clock,
	}
}

// RecordStudySession credits one completed study phase of the given length
func (s *StatsService) RecordStudySession(ctx context.Context, userID, username string, minutes int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}

	now := s.clock.Now()
	streak := nextStreak(user.Stats.LastStudyDate, user.Stats.CurrentStreak, now)
	if err := s.users.AddStudySession(ctx, userID, minutes, streak, now); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.AddMinutes(ctx, userID, username, minutes); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("failed to update leaderboard")
		}
	}
	return nil
}

// nextStreak compares calendar days in now's location: same day keeps the
// streak, the previous day extends it, anything older restarts at 1.
func nextStreak(last *time.Time, current int, now time.Time) int {
	if last == nil || current == 0 {
		return 1
	}

	today := startOfDay(now)
	lastDay := startOfDay(last.In(now.Location()))

	switch {
	case !lastDay.Before(today):
		return current
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return current + 1
	default:
		return 1
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
