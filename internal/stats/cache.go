package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// todaySummaryKey is where the cached dashboard summary lives in Redis.
const todaySummaryKey = "stats:today_summary"

// RedisTodayCache keeps the dashboard's today summary in Redis for a short
// TTL. The dashboard polls aggressively; without the cache every poll costs
// three storage round trips.
type RedisTodayCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisTodayCache(client *redis.Client, ttl time.Duration) *RedisTodayCache {
	return &RedisTodayCache{Client: client, TTL: ttl}
}

// Get returns the cached summary, or nil on a miss. Redis failures read as
// misses; the caller recomputes from storage.
func (c *RedisTodayCache) Get(ctx context.Context) (*TodaySummary, error) {
	if c.Client == nil {
		return nil, nil
	}
	data, err := c.Client.Get(ctx, todaySummaryKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary TodaySummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Set stores the summary under the configured TTL.
func (c *RedisTodayCache) Set(ctx context.Context, summary *TodaySummary) error {
	if c.Client == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, todaySummaryKey, data, c.TTL).Err()
}
