package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings. Zero values fall back to the
// go-redis defaults, except ConnectAttempts which defaults to 3.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize        int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	ConnectAttempts int
}

// NewRedisClient creates a client and verifies the connection with PING,
// retrying start-up failures with the same backoff as NewPostgresPool.
// logger may be nil.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff(attempt - 1)
			if logger != nil {
				logger.Warn("redis ping failed, retrying",
					slog.String("addr", cfg.Addr),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", wait),
					slog.String("error", lastErr.Error()),
				)
			}
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, ctx.Err())
			case <-time.After(wait):
			}
		}

		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("ping redis at %s after %d attempts: %w", cfg.Addr, attempts, lastErr)
}
