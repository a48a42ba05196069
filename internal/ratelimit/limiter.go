package ratelimit

import (
	"context"
	"time"
)

// Limiter paces outbound fetches against a chart source.
type Limiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Reserve() time.Duration
	RetryAfter(attempt int) time.Duration
	Reset()
}

// Strategy selects the pacing behavior. Backfills use fixed_delay as a
// courtesy pause between dates; interactive fetches use token_bucket.
type Strategy string

const (
	StrategyTokenBucket Strategy = "token_bucket"
	StrategyFixedDelay  Strategy = "fixed_delay"
)

// NewLimiter creates a rate limiter based on config.
func NewLimiter(cfg Config) Limiter {
	cfg = applyDefaults(cfg)
	switch cfg.Strategy {
	case StrategyFixedDelay:
		return NewFixedDelayLimiter(cfg)
	default:
		return NewTokenBucket(cfg)
	}
}
