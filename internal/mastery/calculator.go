// Package mastery converts a user's answer history into per-domain mastery
// scores with time decay, trend detection and an adaptive difficulty tier.
package mastery

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
)

const (
	// Threshold is the score at or above which a domain counts as mastered.
	Threshold = 70.0

	// MinSamples is the fewest answers for a score to be trusted.
	MinSamples = 3

	// ConsistencyWindow is how many recent domain answers feed the consistency component.
	ConsistencyWindow = 20

	accuracyWeight    = 60.0
	consistencyWeight = 20.0
	difficultyWeight  = 20.0

	// maxVariance is the variance of a fair coin, the largest a 0/1 series can have.
	maxVariance = 0.25
)

// Calculator computes domain mastery. The zero value is ready to use.
type Calculator struct {
	// DecayAfter is the idle period before decay starts (default 7 days).
	DecayAfter time.Duration
	// DecayPerWeek is the fraction of the score lost per idle week (default 0.05).
	DecayPerWeek float64
}

// NewCalculator returns a Calculator with default decay settings.
func NewCalculator() Calculator {
	return Calculator{DecayAfter: DefaultDecayAfter, DecayPerWeek: DefaultDecayPerWeek}
}

// Recalculate returns one mastery record per domain that appears in either the
// history or the previous snapshot, sorted by domain ID. Domains that aged out of
// the history keep their last components and are only re-decayed.
func (c Calculator) Recalculate(h *performance.History, previous []model.DomainMastery, now time.Time) []model.DomainMastery {
	prevByDomain := make(map[string]model.DomainMastery, len(previous))
	for _, m := range previous {
		prevByDomain[m.DomainID] = m
	}

	seen := make(map[string]bool)
	var out []model.DomainMastery
	for _, domainID := range h.Domains() {
		seen[domainID] = true
		prev, ok := prevByDomain[domainID]
		var prevPtr *model.DomainMastery
		if ok {
			prevPtr = &prev
		}
		out = append(out, c.compute(domainID, h.ForDomain(domainID), prevPtr, now))
	}

	for _, prev := range previous {
		if seen[prev.DomainID] {
			continue
		}
		out = append(out, c.carryForward(prev, now))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DomainID < out[j].DomainID })
	return out
}

// Refresh re-decays stored records as of now without touching their
// components, so a domain left idle since the last recalculation still loses
// score when it is read.
func (c Calculator) Refresh(masteries []model.DomainMastery, now time.Time) []model.DomainMastery {
	if masteries == nil {
		return nil
	}
	out := make([]model.DomainMastery, len(masteries))
	for i, m := range masteries {
		out[i] = c.carryForward(m, now)
	}
	return out
}

func (c Calculator) compute(domainID string, events []model.AnswerEvent, prev *model.DomainMastery, now time.Time) model.DomainMastery {
	stats := performance.Aggregate(domainID, events)

	m := model.DomainMastery{
		DomainID:             domainID,
		AccuracyComponent:    stats.AccuracyRate * accuracyWeight,
		ConsistencyComponent: Consistency(events) * consistencyWeight,
		DifficultyComponent:  stats.DifficultyMixScore * difficultyWeight,
		SampleCount:          stats.SampleCount,
		LowConfidence:        stats.SampleCount < MinSamples,
		Trend:                DetectTrend(events),
		DifficultyTier:       DifficultyTier(events),
	}
	for _, ev := range events {
		if ev.AnsweredAt.After(m.LastActivityAt) {
			m.LastActivityAt = ev.AnsweredAt
		}
	}

	raw := rawScore(m)
	m.PeakScore = raw
	if prev != nil && prev.PeakScore > m.PeakScore {
		m.PeakScore = prev.PeakScore
	}
	m.Score = c.Decay(raw, m.PeakScore, m.LastActivityAt, now)
	return m
}

// carryForward re-decays a record whose answers are no longer in the window.
func (c Calculator) carryForward(prev model.DomainMastery, now time.Time) model.DomainMastery {
	m := prev
	raw := rawScore(m)
	if raw > m.PeakScore {
		m.PeakScore = raw
	}
	m.Score = c.Decay(raw, m.PeakScore, m.LastActivityAt, now)
	if m.DifficultyTier == "" {
		m.DifficultyTier = model.DifficultyMedium
	}
	if m.Trend == "" {
		m.Trend = model.TrendStable
	}
	return m
}

func rawScore(m model.DomainMastery) float64 {
	return clamp(m.AccuracyComponent+m.ConsistencyComponent+m.DifficultyComponent, 0, 100)
}

// Consistency scores how steady the last ConsistencyWindow answers are, in [0,1].
// An empty series scores 0.
func Consistency(events []model.AnswerEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	if len(events) > ConsistencyWindow {
		events = events[len(events)-ConsistencyWindow:]
	}

	n := float64(len(events))
	var mean float64
	for _, ev := range events {
		mean += correctness(ev)
	}
	mean /= n

	var variance float64
	for _, ev := range events {
		d := correctness(ev) - mean
		variance += d * d
	}
	variance /= n

	return clamp(1-variance/maxVariance, 0, 1)
}

func correctness(ev model.AnswerEvent) float64 {
	if ev.IsCorrect {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
