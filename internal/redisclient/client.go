package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/register_attempt.lua
var registerAttemptScript string

type Client struct {
	rdb           *redis.Client
	attemptScript *redis.Script
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

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		attemptScript: redis.NewScript(registerAttemptScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RegisterAttempt atomically counts an attempt against key within a fixed
// window and returns the count so far
func (c *Client) RegisterAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	result, err := c.attemptScript.Run(ctx, c.rdb, []string{attemptKey(key)}, window.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("register attempt script failed: %w", err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}

	return count, nil
}

// ResetAttempts clears the attempt counter for key
func (c *Client) ResetAttempts(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, attemptKey(key)).Err()
}

func attemptKey(key string) string {
	return fmt.Sprintf("unlock_attempts:%s", key)
}
