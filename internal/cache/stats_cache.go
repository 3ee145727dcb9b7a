package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"dental-captcha/internal/model"
)

const (
	leaderboardVersionKey = "captcha:leaderboard:ver"
	leaderboardPagePrefix = "captcha:leaderboard:top:"
)

var errVersionMoved = errors.New("cache version moved")

// StatsCache stores stats rows and leaderboard pages as JSON. Every write is
// conditional on a version counter that Invalidate bumps, so a reader that
// loaded the database before a commit cannot put its row back afterwards.
type StatsCache struct {
	client   *redisv9.Client
	statsTTL time.Duration
}

func NewStatsCache(client *redisv9.Client, statsTTL time.Duration) *StatsCache {
	if statsTTL <= 0 {
		statsTTL = 60 * time.Second
	}
	return &StatsCache{
		client:   client,
		statsTTL: statsTTL,
	}
}

func (c *StatsCache) GetStats(ctx context.Context, userID uint) (*model.UserStats, bool, error) {
	var stats model.UserStats
	ok, err := c.getJSON(ctx, c.statsKey(userID), &stats)
	if err != nil || !ok {
		return nil, false, err
	}
	return &stats, true, nil
}

// StatsVersion must be read before the database so SetStats can detect an
// Invalidate that happened in between.
func (c *StatsCache) StatsVersion(ctx context.Context, userID uint) (int64, error) {
	return c.version(ctx, c.versionKey(userID))
}

// SetStats stores the row only while the user's version still equals version.
// A moved version is not an error; the write is dropped.
func (c *StatsCache) SetStats(ctx context.Context, stats *model.UserStats, version int64) error {
	return c.setIfVersion(ctx, c.versionKey(stats.UserID), version, c.statsKey(stats.UserID), stats)
}

func (c *StatsCache) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, bool, error) {
	var entries []model.LeaderboardEntry
	ok, err := c.getJSON(ctx, c.leaderboardKey(limit), &entries)
	if err != nil || !ok {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *StatsCache) LeaderboardVersion(ctx context.Context) (int64, error) {
	return c.version(ctx, leaderboardVersionKey)
}

func (c *StatsCache) SetLeaderboard(ctx context.Context, limit int, entries []model.LeaderboardEntry, version int64) error {
	return c.setIfVersion(ctx, leaderboardVersionKey, version, c.leaderboardKey(limit), entries)
}

// Invalidate bumps the user's and the leaderboard's versions, then drops the
// user's row and every cached leaderboard page.
func (c *StatsCache) Invalidate(ctx context.Context, userID uint) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.versionKey(userID))
	pipe.Incr(ctx, leaderboardVersionKey)
	pipe.Del(ctx, c.statsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate stats failed: %w", err)
	}

	iter := c.client.Scan(ctx, 0, leaderboardPagePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan leaderboard keys failed: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis delete leaderboard failed: %w", err)
		}
	}
	return nil
}

func (c *StatsCache) version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return v, nil
}

func (c *StatsCache) setIfVersion(ctx context.Context, versionKey string, version int64, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redisv9.Nil {
			return fmt.Errorf("redis get %s failed: %w", versionKey, err)
		}
		if current != version {
			return errVersionMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.statsTTL)
			return nil
		})
		return err
	}, versionKey)
	if errors.Is(err, errVersionMoved) || errors.Is(err, redisv9.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func (c *StatsCache) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal cached %s failed: %w", key, err)
	}
	return true, nil
}

func (c *StatsCache) statsKey(userID uint) string {
	return fmt.Sprintf("captcha:stats:%d", userID)
}

func (c *StatsCache) versionKey(userID uint) string {
	return fmt.Sprintf("captcha:stats:ver:%d", userID)
}

func (c *StatsCache) leaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", leaderboardPagePrefix, limit)
}
