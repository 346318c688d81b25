package cache

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PresenceCache publishes live participant counts so the REST dashboard can
// show them without touching coordinator state
type PresenceCache interface {
	SetLive(ctx context.Context, roomID string, count int) error
	LiveCounts(ctx context.Context, roomIDs []string) (map[string]int64, error)
	Reset(ctx context.Context) error
}

const presenceKey = "rooms:live"

type presenceCache struct {
	client *redis.Client
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(client *redis.Client) PresenceCache {
	return &presenceCache{client: client}
}

func (c *presenceCache) SetLive(ctx context.Context, roomID string, count int) error {
	if count <= 0 {
		return c.client.HDel(ctx, presenceKey, roomID).Err()
	}
	return c.client.HSet(ctx, presenceKey, roomID, count).Err()
}

func (c *presenceCache) LiveCounts(ctx context.Context, roomIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	vals, err := c.client.HMGet(ctx, presenceKey, roomIDs...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			counts[roomIDs[i]] = n
		}
	}
	return counts, nil
}

// Reset clears all counts; in-memory rooms do not survive a restart
func (c *presenceCache) Reset(ctx context.Context) error {
	return c.client.Del(ctx, presenceKey).Err()
}
