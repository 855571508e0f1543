package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Checker adapts a Redis client to a health check.
type Checker struct {
	Client *redis.Client
}

// Ping reports whether Redis answers.
func (c Checker) Ping(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("platform/cache: client not configured")
	}
	return c.Client.Ping(ctx).Err()
}
