// Package gaps finds and ranks domains whose mastery is below threshold.
package gaps

import (
	"fmt"
	"sort"

	"github.com/abhisek/examprep/internal/mastery"
	"github.com/abhisek/examprep/internal/model"
)

const (
	criticalBelow = 40.0
	moderateBelow = 55.0
)

// Identify returns every catalog domain below the mastery threshold, ranked.
// Catalog domains with no mastery record count as never attempted. Mastery
// records for domains outside the catalog are ranked with zero weight.
func Identify(masteries []model.DomainMastery, domains []model.Domain) []model.KnowledgeGap {
	byID := make(map[string]model.DomainMastery, len(masteries))
	for _, m := range masteries {
		byID[m.DomainID] = m
	}

	var out []model.KnowledgeGap
	inCatalog := make(map[string]bool, len(domains))
	for _, d := range domains {
		inCatalog[d.ID] = true
		m, ok := byID[d.ID]
		if !ok {
			m = model.DomainMastery{DomainID: d.ID}
		}
		if gap, isGap := classify(m, d); isGap {
			out = append(out, gap)
		}
	}
	for _, m := range masteries {
		if inCatalog[m.DomainID] {
			continue
		}
		if gap, isGap := classify(m, model.Domain{ID: m.DomainID, Name: m.DomainID}); isGap {
			out = append(out, gap)
		}
	}

	Sort(out)
	return out
}

func classify(m model.DomainMastery, d model.Domain) (model.KnowledgeGap, bool) {
	if m.Score >= mastery.Threshold {
		return model.KnowledgeGap{}, false
	}
	severity := mastery.Threshold - m.Score
	g := model.KnowledgeGap{
		DomainID:       d.ID,
		DomainName:     d.Name,
		Score:          m.Score,
		Severity:       severity,
		ExamWeight:     d.Weight,
		PriorityScore:  severity * d.Weight,
		GapType:        gapType(m),
		Level:          level(m.Score),
		LastActivityAt: m.LastActivityAt,
	}
	g.Recommendation = Recommendation(g)
	return g, true
}

func gapType(m model.DomainMastery) model.GapType {
	switch {
	case m.SampleCount == 0:
		return model.GapNeverLearned
	case m.PeakScore >= mastery.Threshold:
		return model.GapForgotten
	default:
		return model.GapStruggling
	}
}

func level(score float64) model.GapLevel {
	switch {
	case score < criticalBelow:
		return model.GapCritical
	case score < moderateBelow:
		return model.GapModerate
	default:
		return model.GapMinor
	}
}

// Sort orders gaps by priority descending, then stalest activity first, then
// domain ID, and assigns 1-based ranks.
func Sort(gaps []model.KnowledgeGap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		a, b := gaps[i], gaps[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.Before(b.LastActivityAt)
		}
		return a.DomainID < b.DomainID
	})
	for i := range gaps {
		gaps[i].Rank = i + 1
	}
}

// Top returns at most limit gaps. A non-positive limit returns all of them.
func Top(gaps []model.KnowledgeGap, limit int) []model.KnowledgeGap {
	if limit <= 0 || limit >= len(gaps) {
		return gaps
	}
	return gaps[:limit]
}

// Recommendation is the study advice shown alongside a gap.
func Recommendation(g model.KnowledgeGap) string {
	name := g.DomainName
	if name == "" {
		name = g.DomainID
	}
	switch g.GapType {
	case model.GapNeverLearned:
		if g.Level == model.GapCritical {
			return fmt.Sprintf("Start with the fundamentals of %s before attempting timed practice.", name)
		}
		return fmt.Sprintf("Get familiar with %s through short practice sets.", name)
	case model.GapForgotten:
		switch g.Level {
		case model.GapCritical:
			return fmt.Sprintf("%s has slipped well below where it was. Plan focused review sessions.", name)
		case model.GapModerate:
			return fmt.Sprintf("Regular %s practice should bring you back to your earlier level.", name)
		}
		return fmt.Sprintf("A quick %s refresher will keep it from slipping further.", name)
	default:
		if g.Level == model.GapCritical {
			return fmt.Sprintf("Work through easier %s questions and review every explanation.", name)
		}
		return fmt.Sprintf("Keep practicing %s and review the questions you miss.", name)
	}
}

// ByDomain indexes gaps by domain ID.
func ByDomain(gaps []model.KnowledgeGap) map[string]model.KnowledgeGap {
	out := make(map[string]model.KnowledgeGap, len(gaps))
	for _, g := range gaps {
		out[g.DomainID] = g
	}
	return out
}
