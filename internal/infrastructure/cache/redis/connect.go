// Package redis caches web search results in Redis.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect pings the server with exponential backoff between attempts.
func Connect(ctx context.Context, addr, password string, db, maxAttempts int, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	var err error
	for i := range maxAttempts {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = client.Ping(ctx).Err()
		if err == nil {
			logger.Info("redis_connected", "addr", addr, "attempts", i+1)
			return client, nil
		}
		logger.Warn("redis_ping_failed", "addr", addr, "attempt", i+1, "error", err)
	}

	_ = client.Close()
	return nil, fmt.Errorf("connect redis after %d attempts: %w", maxAttempts, err)
}
