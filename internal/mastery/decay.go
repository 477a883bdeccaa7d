package mastery

import (
	"math"
	"time"
)

const (
	DefaultDecayAfter   = 7 * 24 * time.Hour
	DefaultDecayPerWeek = 0.05

	// FloorRatio is the share of the peak score decay can never erode.
	FloorRatio = 0.5
)

// Decay applies inactivity decay to score. Once lastActivity is more than
// DecayAfter in the past, the score loses DecayPerWeek of its value per elapsed
// week, but never drops below FloorRatio of peak.
func (c Calculator) Decay(score, peak float64, lastActivity, now time.Time) float64 {
	after := c.DecayAfter
	if after <= 0 {
		after = DefaultDecayAfter
	}
	rate := c.DecayPerWeek
	if rate <= 0 {
		rate = DefaultDecayPerWeek
	}

	if lastActivity.IsZero() {
		return score
	}
	elapsed := now.Sub(lastActivity)
	if elapsed <= after {
		return score
	}

	weeks := elapsed.Hours() / (24 * 7)
	decayed := score * (1 - rate*weeks)
	floor := math.Max(0, FloorRatio*peak)
	return clamp(math.Max(floor, decayed), 0, 100)
}
