package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache ranks users by minutes studied using a Redis ZSET
type LeaderboardCache interface {
	AddMinutes(ctx context.Context, userID, username string, minutes int) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, userID string) (int64, error)
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Minutes  int    `json:"minutes"`
	Rank     int    `json:"rank"`
}

const (
	leaderboardKey      = "leaderboard:minutes"
	leaderboardNamesKey = "leaderboard:names"
)

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) AddMinutes(ctx context.Context, userID, username string, minutes int) error {
	pipe := c.client.TxPipeline()
	pipe.ZIncrBy(ctx, leaderboardKey, float64(minutes), userID)
	if username != "" {
		pipe.HSet(ctx, leaderboardNamesKey, userID, username)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []LeaderboardEntry{}, nil
	}

	ids := make([]string, len(results))
	for i, z := range results {
		ids[i] = z.Member.(string)
	}
	names, err := c.client.HMGet(ctx, leaderboardNamesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		name, _ := names[i].(string)
		entries[i] = LeaderboardEntry{
			UserID:   ids[i],
			Username: name,
			Minutes:  int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
