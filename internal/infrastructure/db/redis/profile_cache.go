package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/personar/profile-service/internal/core/domain"
)

const defaultProfileTTL = 5 * time.Minute

// ProfileCache is a read-through cache of public profiles backed by Redis.
// Key format: profile:handle:<handle>
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a ProfileCache wrapping the given Redis client.
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached profile; ok is false on a miss.
func (c *ProfileCache) Get(ctx context.Context, handle string) (*domain.PublicProfile, bool, error) {
	raw, err := c.client.Get(ctx, key(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile cache get: %w", err)
	}

	var p domain.PublicProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("profile cache decode: %w", err)
	}
	return &p, true, nil
}

// Set stores the profile under its handle (expires after ttl).
func (c *ProfileCache) Set(ctx context.Context, p *domain.PublicProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	return c.client.Set(ctx, key(p.Handle), raw, c.ttl).Err()
}

func (c *ProfileCache) Invalidate(ctx context.Context, handle string) error {
	return c.client.Del(ctx, key(handle)).Err()
}

func key(handle string) string {
	return "profile:handle:" + handle
}
