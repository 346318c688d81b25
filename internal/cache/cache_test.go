package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLeaderboardCache(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboardCache(newTestClient(t))

	require.NoError(t, lb.AddMinutes(ctx, "u1", "ana", 25))
	require.NoError(t, lb.AddMinutes(ctx, "u2", "ben", 50))
	require.NoError(t, lb.AddMinutes(ctx, "u1", "ana", 50))

	top, err := lb.GetTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, LeaderboardEntry{UserID: "u1", Username: "ana", Minutes: 75, Rank: 1}, top[0])
	assert.Equal(t, LeaderboardEntry{UserID: "u2", Username: "ben", Minutes: 50, Rank: 2}, top[1])

	rank, err := lb.GetRank(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	rank, err = lb.GetRank(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rank)
}

func TestLeaderboardCacheEmpty(t *testing.T) {
	top, err := NewLeaderboardCache(newTestClient(t)).GetTop(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestPresenceCache(t *testing.T) {
	ctx := context.Background()
	pc := NewPresenceCache(newTestClient(t))

	require.NoError(t, pc.SetLive(ctx, "r1", 3))
	require.NoError(t, pc.SetLive(ctx, "r2", 1))

	counts, err := pc.LiveCounts(ctx, []string{"r1", "r2", "r3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"r1": 3, "r2": 1}, counts)

	require.NoError(t, pc.SetLive(ctx, "r1", 0))
	counts, err = pc.LiveCounts(ctx, []string{"r1"})
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, pc.Reset(ctx))
	counts, err = pc.LiveCounts(ctx, []string{"r2"})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
