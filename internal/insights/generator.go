// Package insights turns performance and mastery into user-facing messages.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
)

const (
	DefaultWindow        = 7 * 24 * time.Hour
	DefaultDropThreshold = 10.0 // percentage points
	DefaultMinAnswers    = 3

	improvingAbove   = 75.0
	decliningBelow   = 60.0
	milestoneScore   = 80.0
	weakAccuracy     = 0.5
	weakMinAnswers   = 10
	volumeBand       = 50
	rushMinEach      = 5
	rushTimeFraction = 0.6
)

// VolumeMilestones are answered-question counts worth celebrating.
var VolumeMilestones = []int{100, 250, 500, 1000, 2000}

// Input is everything the generator looks at for one user.
type Input struct {
	UserID        string
	History       *performance.History
	Masteries     []model.DomainMastery
	Gaps          []model.KnowledgeGap
	Domains       []model.Domain
	TotalAnswered int
	Now           time.Time
}

// Generator derives insights. The zero value uses the defaults.
type Generator struct {
	Window        time.Duration
	DropThreshold float64
	MinAnswers    int
	// NewID mints insight IDs. Defaults to random UUIDs.
	NewID func() string
}

// Generate returns insights ordered by type then domain. It has no side
// effects; persisting and de-duplicating is up to the caller.
func (g Generator) Generate(in Input) []model.Insight {
	g = g.withDefaults()

	var out []model.Insight
	out = append(out, g.accuracyDrops(in)...)
	out = append(out, g.weakDomains(in)...)
	out = append(out, g.masteryTrends(in)...)
	out = append(out, g.forgottenGaps(in)...)
	out = append(out, g.volumeMilestone(in)...)
	out = append(out, g.rushing(in)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if typeRank(a.Type) != typeRank(b.Type) {
			return typeRank(a.Type) < typeRank(b.Type)
		}
		if a.DomainID != b.DomainID {
			return a.DomainID < b.DomainID
		}
		return a.Title < b.Title
	})

	for i := range out {
		out[i].ID = g.NewID()
		out[i].UserID = in.UserID
		out[i].CreatedAt = in.Now
	}
	return out
}

func (g Generator) withDefaults() Generator {
	if g.Window <= 0 {
		g.Window = DefaultWindow
	}
	if g.DropThreshold <= 0 {
		g.DropThreshold = DefaultDropThreshold
	}
	if g.MinAnswers <= 0 {
		g.MinAnswers = DefaultMinAnswers
	}
	if g.NewID == nil {
		g.NewID = uuid.NewString
	}
	return g
}

func typeRank(t model.InsightType) int {
	switch t {
	case model.InsightAlert:
		return 0
	case model.InsightRecommendation:
		return 1
	case model.InsightImprovement:
		return 2
	case model.InsightMilestone:
		return 3
	default:
		return 4
	}
}

// accuracyDrops compares the last window with the one before it, overall and per domain.
func (g Generator) accuracyDrops(in Input) []model.Insight {
	var out []model.Insight
	if drop, ok := g.drop(in, ""); ok {
		out = append(out, model.Insight{
			Type:      model.InsightAlert,
			Title:     "Accuracy dropped",
			Message:   fmt.Sprintf("Your overall accuracy fell by %.1f points over the last %s.", drop, windowLabel(g.Window)),
			Priority:  model.PriorityHigh,
			ActionURL: "/practice?mode=review",
		})
	}
	for _, id := range in.History.Domains() {
		drop, ok := g.drop(in, id)
		if !ok {
			continue
		}
		name := model.DomainName(in.Domains, id)
		out = append(out, model.Insight{
			Type:      model.InsightAlert,
			Title:     fmt.Sprintf("%s accuracy dropped", name),
			Message:   fmt.Sprintf("Your %s accuracy fell by %.1f points over the last %s.", name, drop, windowLabel(g.Window)),
			Priority:  model.PriorityHigh,
			DomainID:  id,
			ActionURL: practiceURL(id),
		})
	}
	return out
}

// drop returns the fall in accuracy points when it exceeds the threshold and
// both windows have enough answers.
func (g Generator) drop(in Input, domainID string) (float64, bool) {
	recentFrom := in.Now.Add(-g.Window)
	priorFrom := recentFrom.Add(-g.Window)
	recent := performance.Aggregate(domainID, performance.Between(in.History, domainID, recentFrom, in.Now.Add(time.Nanosecond)))
	prior := performance.Aggregate(domainID, performance.Between(in.History, domainID, priorFrom, recentFrom))
	if recent.SampleCount < g.MinAnswers || prior.SampleCount < g.MinAnswers {
		return 0, false
	}
	drop := (prior.AccuracyRate - recent.AccuracyRate) * 100
	return drop, drop > g.DropThreshold
}

func (g Generator) weakDomains(in Input) []model.Insight {
	var out []model.Insight
	for _, s := range performance.StatsByDomain(in.History) {
		if s.SampleCount < weakMinAnswers || s.AccuracyRate >= weakAccuracy {
			continue
		}
		name := model.DomainName(in.Domains, s.DomainID)
		out = append(out, model.Insight{
			Type:      model.InsightAlert,
			Title:     fmt.Sprintf("%s needs attention", name),
			Message:   fmt.Sprintf("You are answering %.0f%% of %s questions correctly.", s.AccuracyRate*100, name),
			Priority:  model.PriorityHigh,
			DomainID:  s.DomainID,
			ActionURL: practiceURL(s.DomainID),
		})
	}
	return out
}

func (g Generator) masteryTrends(in Input) []model.Insight {
	var out []model.Insight
	for _, m := range in.Masteries {
		name := model.DomainName(in.Domains, m.DomainID)
		switch {
		case m.Trend == model.TrendImproving && m.Score >= milestoneScore:
			out = append(out, model.Insight{
				Type:     model.InsightMilestone,
				Title:    fmt.Sprintf("%s mastered", name),
				Message:  fmt.Sprintf("You reached %.0f in %s and are still improving.", m.Score, name),
				Priority: model.PriorityMedium,
				DomainID: m.DomainID,
			})
		case m.Trend == model.TrendImproving && m.Score > improvingAbove:
			out = append(out, model.Insight{
				Type:     model.InsightImprovement,
				Title:    fmt.Sprintf("%s is improving", name),
				Message:  fmt.Sprintf("Your %s mastery is up to %.0f.", name, m.Score),
				Priority: model.PriorityLow,
				DomainID: m.DomainID,
			})
		case m.Trend == model.TrendDeclining && m.Score < decliningBelow:
			out = append(out, model.Insight{
				Type:      model.InsightRecommendation,
				Title:     fmt.Sprintf("Focus on %s", name),
				Message:   fmt.Sprintf("Your %s mastery slipped to %.0f. Set aside extra practice time for it.", name, m.Score),
				Priority:  model.PriorityHigh,
				DomainID:  m.DomainID,
				ActionURL: practiceURL(m.DomainID),
			})
		}
	}
	return out
}

func (g Generator) forgottenGaps(in Input) []model.Insight {
	var out []model.Insight
	for _, gap := range in.Gaps {
		if gap.GapType != model.GapForgotten {
			continue
		}
		out = append(out, model.Insight{
			Type:      model.InsightRecommendation,
			Title:     fmt.Sprintf("Review %s", gap.DomainName),
			Message:   gap.Recommendation,
			Priority:  model.PriorityMedium,
			DomainID:  gap.DomainID,
			ActionURL: practiceURL(gap.DomainID),
		})
	}
	return out
}

func (g Generator) volumeMilestone(in Input) []model.Insight {
	for _, m := range VolumeMilestones {
		if in.TotalAnswered >= m && in.TotalAnswered < m+volumeBand {
			return []model.Insight{{
				Type:     model.InsightMilestone,
				Title:    fmt.Sprintf("%d questions answered", m),
				Message:  fmt.Sprintf("You have answered %d practice questions so far.", in.TotalAnswered),
				Priority: model.PriorityLow,
			}}
		}
	}
	return nil
}

// rushing flags a window where wrong answers come much faster than right ones.
func (g Generator) rushing(in Input) []model.Insight {
	events := performance.Between(in.History, "", in.Now.Add(-g.Window), in.Now.Add(time.Nanosecond))
	var right, wrong []model.AnswerEvent
	for _, ev := range events {
		if ev.IsCorrect {
			right = append(right, ev)
		} else {
			wrong = append(wrong, ev)
		}
	}
	if len(right) < rushMinEach || len(wrong) < rushMinEach {
		return nil
	}
	rightAvg := performance.Aggregate("", right).AvgTimeMs
	wrongAvg := performance.Aggregate("", wrong).AvgTimeMs
	if rightAvg <= 0 || wrongAvg >= rushTimeFraction*rightAvg {
		return nil
	}
	return []model.Insight{{
		Type:     model.InsightPattern,
		Title:    "Slow down on tricky questions",
		Message:  fmt.Sprintf("Questions you miss take %.0fs on average versus %.0fs for ones you get right.", wrongAvg/1000, rightAvg/1000),
		Priority: model.PriorityLow,
	}}
}

func practiceURL(domainID string) string {
	return "/practice?domain=" + domainID
}

func windowLabel(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	if days == 1 {
		return "day"
	}
	return fmt.Sprintf("%d days", days)
}
