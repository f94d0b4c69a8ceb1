package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/personar/profile-service/internal/core/domain"
)

func TestProfileCache_Key(t *testing.T) {
	if got := key("alice"); got != "profile:handle:alice" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestProfileCache_DefaultTTL(t *testing.T) {
	c := NewProfileCache(nil, 0)
	if c.ttl != defaultProfileTTL {
		t.Fatalf("expected default ttl, got %s", c.ttl)
	}
}

func TestProfileCache_UnreachableServerIsAnErrorNotAHit(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewProfileCache(client, time.Minute)
	p, ok, err := c.Get(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected an error from an unreachable server")
	}
	if ok || p != nil {
		t.Fatalf("expected no hit, got %v %+v", ok, p)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
