package mastery

import "github.com/abhisek/examprep/internal/model"

const (
	// DemoteAfter consecutive incorrect answers lower the tier by one.
	DemoteAfter = 3
	// PromoteAfter consecutive correct answers raise the tier by one.
	PromoteAfter = 5
)

// TierTracker follows a domain's streak of like answers and adjusts the tier.
type TierTracker struct {
	Tier   model.Difficulty
	streak int
	last   bool
}

// NewTierTracker starts at MEDIUM with no streak.
func NewTierTracker() *TierTracker {
	return &TierTracker{Tier: model.DifficultyMedium}
}

// Observe folds one answer into the streak and returns the resulting tier.
func (t *TierTracker) Observe(correct bool) model.Difficulty {
	if t.streak > 0 && correct != t.last {
		t.streak = 0
	}
	t.last = correct
	t.streak++

	switch {
	case correct && t.streak >= PromoteAfter:
		t.Tier = t.Tier.Step(1)
		t.streak = 0
	case !correct && t.streak >= DemoteAfter:
		t.Tier = t.Tier.Step(-1)
		t.streak = 0
	}
	return t.Tier
}

// DifficultyTier replays a domain's answers, oldest first, from MEDIUM.
func DifficultyTier(events []model.AnswerEvent) model.Difficulty {
	t := NewTierTracker()
	for _, ev := range events {
		t.Observe(ev.IsCorrect)
	}
	return t.Tier
}
