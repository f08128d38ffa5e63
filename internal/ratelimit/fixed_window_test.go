package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowLimiterEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", 3, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !limiter.Allow("203.0.113.9") {
			t.Fatalf("request %d should be within quota", i+1)
		}
	}
	if limiter.Allow("203.0.113.9") {
		t.Fatal("request over quota should be denied")
	}
	if !limiter.Allow("198.51.100.7") {
		t.Fatal("different key should have its own quota")
	}
}

func TestFixedWindowLimiterFailsClosedOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewFixedWindowLimiter(client, "", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	mr.Close()
	if limiter.Allow("203.0.113.9") {
		t.Fatal("expected denial when redis is unreachable")
	}
}

func TestNewFixedWindowLimiterValidatesInput(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if _, err := NewFixedWindowLimiter(nil, "", 1, time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewFixedWindowLimiter(client, "", 0, time.Minute); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewFixedWindowLimiter(client, "", 1, 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}
