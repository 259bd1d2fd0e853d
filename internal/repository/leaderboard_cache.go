package repository

import (
	"context"
	"encoding/json"
	"fellowship_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardGenerationKey = "quiz:leaderboard:gen"

// LeaderboardCache stores rendered leaderboards in redis. Every key embeds the
// current generation, and Invalidate bumps it, so a submit retires all views at once.
// A nil client disables caching.
type LeaderboardCache struct {
	Redis *redis.Client
}

func NewLeaderboardCache(rdb *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{Redis: rdb}
}

func (c *LeaderboardCache) Enabled() bool {
	return c != nil && c.Redis != nil
}

func (c *LeaderboardCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.Redis.Get(ctx, leaderboardGenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *LeaderboardCache) key(ctx context.Context, name string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("quiz:leaderboard:%d:%s", gen, name), nil
}

// Get decodes a cached value into dest and reports whether it was found.
// The returned key is bound to the generation read here and must be passed to Set.
// An empty key means nothing should be written.
func (c *LeaderboardCache) Get(ctx context.Context, name string, dest interface{}) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	key, err := c.key(ctx, name)
	if err != nil {
		logger.Log.Warn("Leaderboard cache unavailable", zap.Error(err))
		return "", false
	}
	data, err := c.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return key, false
	}
	if json.Unmarshal(data, dest) != nil {
		return key, false
	}
	return key, true
}

// Set stores value under a key previously returned by Get. If the generation
// moved on in between, the write lands under the retired generation and is never read.
func (c *LeaderboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !c.Enabled() || key == "" || ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.Redis.Incr(ctx, leaderboardGenerationKey).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}
