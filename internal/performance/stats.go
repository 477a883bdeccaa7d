package performance

import (
	"sort"
	"time"

	"github.com/abhisek/examprep/internal/model"
)

// difficultyWeight maps a tier to its contribution to the difficulty mix.
func difficultyWeight(d model.Difficulty) float64 {
	switch d {
	case model.DifficultyMedium:
		return 0.5
	case model.DifficultyHard:
		return 1.0
	default:
		return 0
	}
}

// Aggregate computes stats over an arbitrary slice of answers.
// An empty slice yields zero-sample stats.
func Aggregate(domainID string, events []model.AnswerEvent) model.DomainStats {
	stats := model.DomainStats{DomainID: domainID}
	if len(events) == 0 {
		return stats
	}

	var totalTime int64
	var mix float64
	for _, ev := range events {
		if ev.IsCorrect {
			stats.CorrectCount++
		}
		totalTime += ev.TimeSpentMs
		mix += difficultyWeight(ev.Difficulty)
	}

	n := float64(len(events))
	stats.SampleCount = len(events)
	stats.AccuracyRate = float64(stats.CorrectCount) / n
	stats.AvgTimeMs = float64(totalTime) / n
	stats.DifficultyMixScore = mix / n
	return stats
}

// Stats aggregates the retained answers of one domain.
func Stats(h *History, domainID string) model.DomainStats {
	return Aggregate(domainID, h.ForDomain(domainID))
}

// StatsByDomain returns stats for every domain present in the history, sorted by domain ID.
func StatsByDomain(h *History) []model.DomainStats {
	ids := h.Domains()
	out := make([]model.DomainStats, 0, len(ids))
	for _, id := range ids {
		out = append(out, Stats(h, id))
	}
	return out
}

// OverallStats summarizes the whole retained history.
type OverallStats struct {
	model.DomainStats
	ByDifficulty map[model.Difficulty]model.DomainStats `json:"by_difficulty"`
}

// Overall aggregates across all domains with a per-difficulty breakdown.
func Overall(h *History) OverallStats {
	events := h.Events()
	out := OverallStats{
		DomainStats:  Aggregate("", events),
		ByDifficulty: make(map[model.Difficulty]model.DomainStats),
	}
	for _, d := range model.AllDifficulties() {
		var subset []model.AnswerEvent
		for _, ev := range events {
			if ev.Difficulty == d {
				subset = append(subset, ev)
			}
		}
		out.ByDifficulty[d] = Aggregate("", subset)
	}
	return out
}

// DayPoint is accuracy for a single UTC day.
type DayPoint struct {
	Date     time.Time `json:"date"`
	Answered int       `json:"answered"`
	Accuracy float64   `json:"accuracy"`
}

// DailyTrend buckets answers from the last days UTC days (including today) by day.
// Days without answers are omitted.
func DailyTrend(h *History, days int, now time.Time) []DayPoint {
	if days <= 0 {
		return nil
	}
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	type bucket struct{ total, correct int }
	buckets := make(map[time.Time]*bucket)
	for _, ev := range h.Events() {
		day := ev.AnsweredAt.UTC().Truncate(24 * time.Hour)
		if day.Before(start) || day.After(today) {
			continue
		}
		b := buckets[day]
		if b == nil {
			b = &bucket{}
			buckets[day] = b
		}
		b.total++
		if ev.IsCorrect {
			b.correct++
		}
	}

	out := make([]DayPoint, 0, len(buckets))
	for day, b := range buckets {
		out = append(out, DayPoint{
			Date:     day,
			Answered: b.total,
			Accuracy: float64(b.correct) / float64(b.total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Between returns answers in [from, to), oldest first. An empty domainID matches all domains.
func Between(h *History, domainID string, from, to time.Time) []model.AnswerEvent {
	var out []model.AnswerEvent
	for _, ev := range h.Events() {
		if domainID != "" && ev.DomainID != domainID {
			continue
		}
		if ev.AnsweredAt.Before(from) || !ev.AnsweredAt.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
