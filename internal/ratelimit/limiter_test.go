package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllowAndRefill(t *testing.T) {
	cfg := Config{RequestsPerSec: 5, Burst: 5}
	tb := NewTokenBucket(cfg)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Fatalf("expected token available at %d", i)
		}
	}
	if tb.Allow() {
		t.Fatalf("expected no token after burst")
	}

	time.Sleep(250 * time.Millisecond)
	if !tb.Allow() {
		t.Fatalf("expected token after partial refill")
	}
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	cfg := Config{RequestsPerSec: 1, Burst: 1}
	tb := NewTokenBucket(cfg)

	// consume initial token
	if !tb.Allow() {
		t.Fatalf("expected first token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Fatalf("expected timeout")
	}
}

func TestFixedDelay(t *testing.T) {
	delay := 50 * time.Millisecond
	fdl := NewFixedDelayLimiter(Config{FixedDelay: delay})

	if !fdl.Allow() {
		t.Fatalf("expected first allow")
	}

	wait := fdl.Reserve()
	if wait <= 0 {
		t.Fatalf("expected reserve to request wait, got %v", wait)
	}

	if wait < delay/2 {
		t.Fatalf("expected wait close to delay; got %v", wait)
	}
}

func TestFixedDelayWaitRespectsContext(t *testing.T) {
	fdl := NewFixedDelayLimiter(Config{FixedDelay: time.Second})
	if !fdl.Allow() {
		t.Fatalf("expected first allow")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := fdl.Wait(ctx); err == nil {
		t.Fatalf("expected context deadline to interrupt the pause")
	}
}

func TestCalculateBackoffBounds(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2, MaxRetries: 5}

	for attempt := 1; attempt <= 5; attempt++ {
		d := CalculateBackoff(attempt, cfg)
		if d <= 0 {
			t.Fatalf("backoff should be positive")
		}
		if d > cfg.MaxBackoff {
			t.Fatalf("backoff should cap at max")
		}
	}

	if d := CalculateBackoff(10, cfg); d != cfg.MaxBackoff {
		t.Fatalf("expected max backoff when attempts exceed max retries")
	}
}
