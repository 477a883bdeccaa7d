package engine

import (
	"strings"

	"github.com/abhisek/examprep/internal/model"
)

// Bounds and defaults for caller-supplied parameters.
const (
	DefaultCount = 10
	MaxCount     = 50

	MaxExcludeRecentDays = 30

	DefaultGapLimit = 10
	MaxGapLimit     = 20

	DefaultInsightLimit = 20
	MaxInsightLimit     = 50

	profileGapLimit     = 5
	profileInsightLimit = 10
)

// RecommendParams narrows a recommendation request. Zero values take defaults.
type RecommendParams struct {
	Count         int
	DomainID      string
	DifficultyMin model.Difficulty
	DifficultyMax model.Difficulty
	// ExcludeRecentDays is nil for the configured default; 0 disables exclusion.
	ExcludeRecentDays *int
}

func (p RecommendParams) normalize(defaultExclude int) (RecommendParams, int, error) {
	if p.Count == 0 {
		p.Count = DefaultCount
	}
	if p.Count < 1 || p.Count > MaxCount {
		return p, 0, invalid("count", "must be within [1,%d], got %d", MaxCount, p.Count)
	}

	exclude := defaultExclude
	if p.ExcludeRecentDays != nil {
		exclude = *p.ExcludeRecentDays
	}
	if exclude < 0 || exclude > MaxExcludeRecentDays {
		return p, 0, invalid("exclude_recent_days", "must be within [0,%d], got %d", MaxExcludeRecentDays, exclude)
	}

	if p.DifficultyMin != "" && !p.DifficultyMin.Valid() {
		return p, 0, invalid("difficulty_min", "unknown tier %q", p.DifficultyMin)
	}
	if p.DifficultyMax != "" && !p.DifficultyMax.Valid() {
		return p, 0, invalid("difficulty_max", "unknown tier %q", p.DifficultyMax)
	}
	if p.DifficultyMin.Valid() && p.DifficultyMax.Valid() && p.DifficultyMin.Rank() > p.DifficultyMax.Rank() {
		return p, 0, invalid("difficulty_min", "%s is above difficulty_max %s", p.DifficultyMin, p.DifficultyMax)
	}
	return p, exclude, nil
}

func limitOrDefault(field string, limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > max {
		return 0, invalid(field, "must be within [1,%d], got %d", max, limit)
	}
	return limit, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user_id", "required")
	}
	return nil
}

func validateEvent(ev model.AnswerEvent) error {
	if err := requireUser(ev.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(ev.QuestionID) == "" {
		return invalid("question_id", "required")
	}
	if strings.TrimSpace(ev.DomainID) == "" {
		return invalid("domain_id", "required")
	}
	if !ev.Difficulty.Valid() {
		return invalid("difficulty", "unknown tier %q", ev.Difficulty)
	}
	if ev.TimeSpentMs < 0 {
		return invalid("time_spent_ms", "must not be negative")
	}
	return nil
}
