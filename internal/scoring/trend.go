package scoring

import "math"

// recentWindow is the lookback for the momentum rule.
const recentWindow = 7

// HasUpwardTrend reports whether a position history shows upward
// momentum: either three consecutive improving days anywhere in the
// history, or, with at least seven data points, five or more
// day-over-day improvements across the most recent seven.
func HasUpwardTrend(positions []int) bool {
	// Rule 1: two consecutive strict improvements.
	for i := 0; i+2 < len(positions); i++ {
		if positions[i] > positions[i+1] && positions[i+1] > positions[i+2] {
			return true
		}
	}

	// Rule 2: dense improvements in the recent window.
	if len(positions) >= recentWindow {
		recent := positions[len(positions)-recentWindow:]
		improvements := 0
		for i := 0; i+1 < len(recent); i++ {
			if recent[i+1] < recent[i] {
				improvements++
			}
		}
		if improvements >= 5 {
			return true
		}
	}

	return false
}

// ConsistencyScore is the population standard deviation of the position
// history, rounded to one decimal. Lower means more consistent. Histories
// shorter than two points score zero.
func ConsistencyScore(positions []int) float64 {
	if len(positions) < 2 {
		return 0
	}

	sum := 0
	for _, pos := range positions {
		sum += pos
	}
	mean := float64(sum) / float64(len(positions))

	var variance float64
	for _, pos := range positions {
		d := float64(pos) - mean
		variance += d * d
	}
	variance /= float64(len(positions))

	return math.Round(math.Sqrt(variance)*10) / 10
}
