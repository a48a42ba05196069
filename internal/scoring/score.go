// Package scoring converts a track's chronological position history into
// a weighted lead score and trend signals. Every function here is pure;
// history loading and multiplier caching stay at the edges.
package scoring

import "math"

// rankAnchor anchors the position terms of the score formula. Charts run
// 1..50, so position 51 contributes exactly zero and anything beyond it
// goes negative; callers clamp or accept that.
const rankAnchor = 51

// top-N thresholds for the score breakdown.
const (
	top10Threshold = 10
	top20Threshold = 20
)

// Breakdown itemizes how a lead score was earned. DaysInTop20 is
// cumulative and includes the top-10 days.
type Breakdown struct {
	DaysInTop10     int     `json:"daysInTop10"`
	DaysInTop20     int     `json:"daysInTop20"`
	AveragePosition float64 `json:"averagePosition"`
	BestPosition    int     `json:"bestPosition"`
	TotalDays       int     `json:"totalDays"`
}

// LeadScore computes the weighted scalar for one track's position
// history, oldest first. An empty history scores zero across the board.
func LeadScore(positions []int, m Multipliers) (float64, Breakdown) {
	if len(positions) == 0 {
		return 0, Breakdown{}
	}

	var breakdown Breakdown
	breakdown.TotalDays = len(positions)
	breakdown.BestPosition = positions[0]

	sum := 0
	for _, pos := range positions {
		sum += pos
		if pos <= top10Threshold {
			breakdown.DaysInTop10++
		}
		if pos <= top20Threshold {
			breakdown.DaysInTop20++
		}
		if pos < breakdown.BestPosition {
			breakdown.BestPosition = pos
		}
	}
	breakdown.AveragePosition = float64(sum) / float64(len(positions))

	score := float64(breakdown.DaysInTop10)*m.Top10 +
		float64(breakdown.DaysInTop20-breakdown.DaysInTop10)*m.Top20 +
		(rankAnchor-breakdown.AveragePosition)*m.AvgPosition +
		float64(rankAnchor-breakdown.BestPosition)*m.BestPosition

	return round1(score), breakdown
}

// ArtistLeadScore rolls track scores up to the artist.
func ArtistLeadScore(trackScores []float64) float64 {
	var total float64
	for _, s := range trackScores {
		total += s
	}
	return round1(total)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
