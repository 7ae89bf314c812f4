// Package cache wraps the Redis client used as the gateway's fast cache:
// token-to-user lookups, session mirrors, and usage counters. Redis is never
// authoritative; every value stored here can be re-derived from Postgres or
// dropped entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/proxygate/proxygate/internal/auth/domain"
)

const usageTTL = 7 * 24 * time.Hour

type Cache struct {
	rdb *redis.Client
}

func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second

	return &Cache{rdb: redis.NewClient(opts)}, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func tokenKey(token string) string        { return "token:" + token }
func sessionKey(sessionID string) string  { return "session:" + sessionID }
func userSessionsKey(userID int64) string { return "user_sessions:" + strconv.FormatInt(userID, 10) }
func statsKey(userID int64) string        { return "stats:" + strconv.FormatInt(userID, 10) }

func (c *Cache) CacheToken(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, tokenKey(token), userID, ttl).Err()
}

func (c *Cache) UserIDForToken(ctx context.Context, token string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// A corrupt entry is treated as a miss so the caller falls back to
		// signature verification.
		return 0, false, nil
	}

	return userID, true, nil
}

func (c *Cache) InvalidateToken(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, tokenKey(token)).Err()
}

func (c *Cache) CacheSession(ctx context.Context, sessionID string, userID int64, mirror domain.SessionMirror, ttl time.Duration) error {
	data, err := json.Marshal(mirror)
	if err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, sessionKey(sessionID), data, ttl).Err(); err != nil {
		return err
	}

	key := userSessionsKey(userID)
	if err := c.rdb.SAdd(ctx, key, sessionID).Err(); err != nil {
		return err
	}

	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *Cache) DeleteSession(ctx context.Context, sessionID string, userID int64) error {
	if err := c.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return err
	}

	return c.rdb.SRem(ctx, userSessionsKey(userID), sessionID).Err()
}

// IncrementUsage adds to the per-user byte and request counters. HINCRBY is
// atomic, so concurrent relays for the same user never lose increments. The
// TTL is rolled forward on every write.
func (c *Cache) IncrementUsage(ctx context.Context, userID int64, bytesSent, bytesReceived int64) error {
	key := statsKey(userID)

	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "bytes_sent", bytesSent)
	pipe.HIncrBy(ctx, key, "bytes_received", bytesReceived)
	pipe.HIncrBy(ctx, key, "requests", 1)
	pipe.Expire(ctx, key, usageTTL)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) Usage(ctx context.Context, userID int64) (bytesSent, bytesReceived, requests int64, err error) {
	vals, err := c.rdb.HGetAll(ctx, statsKey(userID)).Result()
	if err != nil {
		return 0, 0, 0, err
	}

	parse := func(field string) int64 {
		n, _ := strconv.ParseInt(vals[field], 10, 64)
		return n
	}

	return parse("bytes_sent"), parse("bytes_received"), parse("requests"), nil
}
