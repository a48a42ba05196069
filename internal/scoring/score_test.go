package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadScoreEmptyHistory(t *testing.T) {
	score, breakdown := LeadScore(nil, DefaultMultipliers())
	assert.Zero(t, score)
	assert.Equal(t, Breakdown{}, breakdown)
}

func TestLeadScoreDefaults(t *testing.T) {
	// Three days at the very top: 3*15 + 0*8 + (51-1)*10 + (51-1)*5.
	score, breakdown := LeadScore([]int{1, 1, 1}, DefaultMultipliers())
	assert.Equal(t, 795.0, score)
	assert.Equal(t, Breakdown{
		DaysInTop10:     3,
		DaysInTop20:     3,
		AveragePosition: 1,
		BestPosition:    1,
		TotalDays:       3,
	}, breakdown)
}

func TestLeadScoreMixedHistory(t *testing.T) {
	// Positions 5, 15 and 30: one top-10 day, one extra top-20 day,
	// average 50/3, best 5.
	score, breakdown := LeadScore([]int{5, 15, 30}, DefaultMultipliers())
	assert.Equal(t, 1, breakdown.DaysInTop10)
	assert.Equal(t, 2, breakdown.DaysInTop20, "top-20 count includes top-10 days")
	assert.Equal(t, 5, breakdown.BestPosition)
	assert.InDelta(t, 50.0/3.0, breakdown.AveragePosition, 1e-9)

	// 15 + 8 + (51-50/3)*10 + 46*5 = 596.33…, rounded to one decimal.
	assert.Equal(t, 596.3, score)
}

func TestLeadScoreCustomMultipliers(t *testing.T) {
	m := Multipliers{Top10: 1, Top20: 1, AvgPosition: 0, BestPosition: 0}
	score, _ := LeadScore([]int{3, 12, 40}, m)
	// One top-10 day plus one additional top-20 day.
	assert.Equal(t, 2.0, score)
}

func TestArtistLeadScore(t *testing.T) {
	assert.Zero(t, ArtistLeadScore(nil))
	assert.Equal(t, 1391.6, ArtistLeadScore([]float64{795.0, 596.3, 0.3}))
}

func TestHasUpwardTrend(t *testing.T) {
	cases := []struct {
		name      string
		positions []int
		want      bool
	}{
		{"empty", nil, false},
		{"too short", []int{10, 9}, false},
		{"three improving days", []int{10, 9, 8}, true},
		{"flat", []int{10, 10, 10}, false},
		{"plateau breaks the streak", []int{10, 9, 9, 8}, false},
		{"streak mid-history", []int{20, 19, 20, 18, 17, 20, 16}, true},
		{"streak late in a long history", []int{30, 1, 9, 8, 10, 9, 8, 10, 9}, true},
		{"sparse improvements", []int{30, 29, 30, 29, 30, 29, 30}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasUpwardTrend(tc.positions))
		})
	}
}

func TestConsistencyScore(t *testing.T) {
	assert.Zero(t, ConsistencyScore(nil))
	assert.Zero(t, ConsistencyScore([]int{7}))
	assert.Zero(t, ConsistencyScore([]int{10, 10, 10}))

	// Population stddev of 1, 5, 9 is sqrt(32/3) = 3.265…
	assert.Equal(t, 3.3, ConsistencyScore([]int{1, 5, 9}))
	assert.Equal(t, 2.0, ConsistencyScore([]int{2, 6}))
}

type stubSource struct {
	m     Multipliers
	err   error
	calls int
}

func (s *stubSource) Multipliers(context.Context) (Multipliers, error) {
	s.calls++
	return s.m, s.err
}

func TestMultiplierCacheMemoizes(t *testing.T) {
	src := &stubSource{m: Multipliers{Top10: 2, Top20: 2, AvgPosition: 2, BestPosition: 2}}
	cache := NewMultiplierCache(src, time.Minute)
	ctx := context.Background()

	first := cache.Get(ctx)
	second := cache.Get(ctx)
	assert.Equal(t, src.m, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	cache.Invalidate()
	cache.Get(ctx)
	assert.Equal(t, 2, src.calls)
}

func TestMultiplierCacheZeroTTLDisablesMemoization(t *testing.T) {
	src := &stubSource{m: DefaultMultipliers()}
	cache := NewMultiplierCache(src, 0)
	ctx := context.Background()

	cache.Get(ctx)
	cache.Get(ctx)
	assert.Equal(t, 2, src.calls)
}

func TestMultiplierCacheFallbacks(t *testing.T) {
	ctx := context.Background()

	// No source at all: documented defaults.
	empty := NewMultiplierCache(nil, time.Minute)
	assert.Equal(t, DefaultMultipliers(), empty.Get(ctx))

	// Source that has never succeeded: defaults.
	failing := &stubSource{err: errors.New("settings store down")}
	cache := NewMultiplierCache(failing, time.Minute)
	assert.Equal(t, DefaultMultipliers(), cache.Get(ctx))

	// Source that succeeded once and then started failing: stale value
	// beats defaults.
	flapping := &stubSource{m: Multipliers{Top10: 9, Top20: 9, AvgPosition: 9, BestPosition: 9}}
	cache = NewMultiplierCache(flapping, time.Nanosecond)
	got := cache.Get(ctx)
	require.Equal(t, flapping.m, got)

	flapping.err = errors.New("settings store down")
	time.Sleep(time.Millisecond)
	assert.Equal(t, flapping.m, cache.Get(ctx))
}
