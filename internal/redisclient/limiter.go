package redisclient

import (
	"context"
	"time"
)

// AttemptLimiter throttles credential attempts per key with a fixed window
type AttemptLimiter struct {
	client      *Client
	maxAttempts int64
	window      time.Duration
}

// NewAttemptLimiter creates a limiter allowing maxAttempts per window
func NewAttemptLimiter(client *Client, maxAttempts int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// Allow registers an attempt and reports whether it is within the limit
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.RegisterAttempt(ctx, key, l.window)
	if err != nil {
		return false, err
	}
	return count <= l.maxAttempts, nil
}

// Reset clears the attempts recorded for key
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.client.ResetAttempts(ctx, key)
}
