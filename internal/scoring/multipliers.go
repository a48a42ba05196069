package scoring

import (
	"context"
	"sync"
	"time"
)

// Multipliers weight the lead score terms. They come from external
// configuration; the stated defaults apply whenever loading fails.
type Multipliers struct {
	Top10        float64 `yaml:"top10" json:"top10"`
	Top20        float64 `yaml:"top20" json:"top20"`
	AvgPosition  float64 `yaml:"avg_position" json:"avg_position"`
	BestPosition float64 `yaml:"best_position" json:"best_position"`
}

// DefaultMultipliers returns the documented defaults.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		Top10:        15,
		Top20:        8,
		AvgPosition:  10,
		BestPosition: 5,
	}
}

// MultiplierSource loads the configured multipliers, typically from a
// settings store.
type MultiplierSource interface {
	Multipliers(ctx context.Context) (Multipliers, error)
}

// MultiplierCache memoizes a source with a short TTL. A miss or a source
// failure falls back to defaults rather than failing; Invalidate must be
// called whenever the configuration changes.
type MultiplierCache struct {
	source MultiplierSource
	ttl    time.Duration

	mu        sync.Mutex
	cached    Multipliers
	fetchedAt time.Time
	valid     bool
}

// NewMultiplierCache builds a cache over a source. A zero ttl disables
// memoization and consults the source every call.
func NewMultiplierCache(source MultiplierSource, ttl time.Duration) *MultiplierCache {
	return &MultiplierCache{source: source, ttl: ttl}
}

// Get returns the effective multipliers, never an error.
func (c *MultiplierCache) Get(ctx context.Context) Multipliers {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.ttl > 0 && time.Since(c.fetchedAt) < c.ttl {
		return c.cached
	}

	if c.source == nil {
		return DefaultMultipliers()
	}

	m, err := c.source.Multipliers(ctx)
	if err != nil {
		if c.valid {
			// Stale beats defaults when the source is flapping.
			return c.cached
		}
		return DefaultMultipliers()
	}

	c.cached = m
	c.fetchedAt = time.Now()
	c.valid = true
	return m
}

// Invalidate drops the memoized value.
func (c *MultiplierCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
