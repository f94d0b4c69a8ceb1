package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/personar/profile-service/internal/core/domain"
)

const (
	defaultTimeout = 5 * time.Second
	// Cache calls sit on the request path; keep them short.
	opTimeout = 500 * time.Millisecond
)

// Config captures the settings for the profile cache connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// Connect builds a client tuned for cache traffic and checks it with a ping.
// An unreachable server is reported as domain.ErrUnavailable.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		MaxRetries:   1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w: %v", cfg.Addr, domain.ErrUnavailable, err)
	}
	return client, nil
}
