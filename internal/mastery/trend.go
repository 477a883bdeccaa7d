package mastery

import "github.com/abhisek/examprep/internal/model"

// TrendThreshold is the percentage-point change between the oldest and newest
// thirds of a domain's window that counts as movement.
const TrendThreshold = 5.0

// DetectTrend compares mean correctness of the newest third of events against
// the oldest third. Fewer than three events are always stable.
func DetectTrend(events []model.AnswerEvent) model.Trend {
	third := len(events) / 3
	if third == 0 {
		return model.TrendStable
	}

	older := meanCorrect(events[:third]) * 100
	recent := meanCorrect(events[len(events)-third:]) * 100
	delta := recent - older

	switch {
	case delta > TrendThreshold:
		return model.TrendImproving
	case delta < -TrendThreshold:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func meanCorrect(events []model.AnswerEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum float64
	for _, ev := range events {
		sum += correctness(ev)
	}
	return sum / float64(len(events))
}
