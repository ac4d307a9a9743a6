package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/save_session.lua
var saveSessionScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	saveScript    *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		saveScript:    redis.NewScript(saveSessionScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// GetSession returns the encoded session. The second return value is false
// when no session is stored
func (c *Client) GetSession(ctx context.Context, id string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}
	return data, true, nil
}

// SaveSession stores the encoded session with TTL, or deletes it when it
// holds no keys
func (c *Client) SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	_, err := c.saveScript.Run(ctx, c.rdb, []string{sessionKey(id)}, string(data), int64(ttl/time.Second)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("save session script failed: %w", err)
	}
	return nil
}

// AcquireLock acquires a distributed lock owned by token
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
}

// ReleaseLock releases a distributed lock if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
