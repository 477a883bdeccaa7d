// Package selector builds a practice set from a user's gaps and mastered
// domains, mixing gap, maintenance and stretch questions.
package selector

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/abhisek/examprep/internal/mastery"
	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
)

const (
	// DefaultExcludeRecentDays hides questions answered correctly this recently.
	DefaultExcludeRecentDays = 7

	// StretchFloor is the lowest score a gap domain needs to get stretch questions.
	StretchFloor = 50.0

	// retryBoost multiplies the weight of questions last answered incorrectly.
	retryBoost = 2.0
)

// Category is the bucket a selected question was drawn for.
type Category string

const (
	CategoryGap         Category = "gap"
	CategoryMaintenance Category = "maintenance"
	CategoryStretch     Category = "stretch"
	// CategoryFill marks a question drawn after every adaptive pool ran dry.
	// Its tier is not held to the domain's adaptive tier.
	CategoryFill Category = "fill"
)

// Request describes one selection.
type Request struct {
	Count      int
	History    *performance.History
	Masteries  []model.DomainMastery
	Gaps       []model.KnowledgeGap
	Candidates []model.Question

	DomainID      string
	DifficultyMin model.Difficulty
	DifficultyMax model.Difficulty

	// ExcludeRecentDays of 0 disables anti-repetition.
	ExcludeRecentDays int
	// RecentlyCorrect lists questions the store reports as answered correctly
	// inside the exclusion window. It covers answers older than History holds.
	RecentlyCorrect []string
	Now             time.Time
}

// Pick is a selected question and why it was chosen.
type Pick struct {
	Question model.Question `json:"question"`
	Category Category       `json:"category"`
}

// Result is the selected set with allocation metadata.
type Result struct {
	Questions  []Pick     `json:"questions"`
	Allocation Allocation `json:"allocation"`
	// Filled counts picks per adaptive bucket. Fill picks are not counted.
	Filled Allocation `json:"filled"`
	// Shortfall is how many of the requested slots could not be filled.
	Shortfall int `json:"shortfall"`
}

// Selector picks questions. Randomness comes only from Rand so a fixed seed
// gives a fixed selection.
type Selector struct {
	rng *rand.Rand
}

// New creates a Selector drawing from rng.
func New(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

type candidate struct {
	q      model.Question
	weight float64
}

type run struct {
	rng    *rand.Rand
	pool   []candidate
	used   map[string]bool
	tiers  map[string]model.Difficulty
	lo, hi model.Difficulty
	picks  []Pick
}

// Select fills req.Count slots. Unfilled gap slots move to maintenance,
// unfilled maintenance slots to stretch, and unfilled stretch slots go back to
// gap then maintenance. Anything still open is filled from the remaining
// eligible questions, and whatever cannot be filled is reported as Shortfall.
func (s *Selector) Select(req Request) Result {
	alloc := Allocate(req.Count)
	res := Result{Allocation: alloc}
	if req.Count <= 0 {
		return res
	}

	lo, hi := req.DifficultyMin, req.DifficultyMax
	if !lo.Valid() {
		lo = model.DifficultyEasy
	}
	if !hi.Valid() {
		hi = model.DifficultyHard
	}

	r := &run{
		rng:   s.rng,
		pool:  eligible(req, lo, hi),
		used:  make(map[string]bool),
		tiers: make(map[string]model.Difficulty),
		lo:    lo,
		hi:    hi,
	}
	for _, m := range req.Masteries {
		r.tiers[m.DomainID] = m.DifficultyTier
	}

	var gapDomains, stretchDomains []model.KnowledgeGap
	for _, g := range req.Gaps {
		if req.DomainID != "" && g.DomainID != req.DomainID {
			continue
		}
		gapDomains = append(gapDomains, g)
		if g.Score >= StretchFloor && g.Score < mastery.Threshold {
			stretchDomains = append(stretchDomains, g)
		}
	}
	var maintDomains []string
	for _, m := range req.Masteries {
		if req.DomainID != "" && m.DomainID != req.DomainID {
			continue
		}
		if m.Score >= mastery.Threshold {
			maintDomains = append(maintDomains, m.DomainID)
		}
	}
	sort.Strings(maintDomains)

	gapOpen := alloc.Gap - r.fillGap(gapDomains, alloc.Gap)
	maintWant := alloc.Maintenance + gapOpen
	maintOpen := maintWant - r.fillMaintenance(maintDomains, maintWant)
	stretchWant := alloc.Stretch + maintOpen
	open := stretchWant - r.fillStretch(stretchDomains, stretchWant)
	if open > 0 {
		open -= r.fillGap(gapDomains, open)
	}
	if open > 0 {
		open -= r.fillMaintenance(maintDomains, open)
	}
	if open > 0 {
		r.fillRemaining(open)
	}

	res.Questions = r.picks
	for _, p := range r.picks {
		switch p.Category {
		case CategoryGap:
			res.Filled.Gap++
		case CategoryMaintenance:
			res.Filled.Maintenance++
		case CategoryStretch:
			res.Filled.Stretch++
		}
	}
	res.Shortfall = req.Count - len(r.picks)
	return res
}

// eligible applies the request filters and anti-repetition, returning
// candidates sorted by ID with their sampling weights.
func eligible(req Request, lo, hi model.Difficulty) []candidate {
	lastCorrect := make(map[string]time.Time)
	lastResult := make(map[string]bool)
	for _, ev := range req.History.Events() {
		lastResult[ev.QuestionID] = ev.IsCorrect
		if ev.IsCorrect && ev.AnsweredAt.After(lastCorrect[ev.QuestionID]) {
			lastCorrect[ev.QuestionID] = ev.AnsweredAt
		}
	}

	var cutoff time.Time
	excluded := make(map[string]bool)
	if req.ExcludeRecentDays > 0 {
		cutoff = req.Now.Add(-time.Duration(req.ExcludeRecentDays) * 24 * time.Hour)
		for _, id := range req.RecentlyCorrect {
			excluded[id] = true
		}
	}
	filter := model.QuestionFilter{DomainID: req.DomainID, DifficultyMin: lo, DifficultyMax: hi}

	seen := make(map[string]bool)
	var out []candidate
	for _, q := range req.Candidates {
		if seen[q.ID] || !filter.Matches(q) {
			continue
		}
		seen[q.ID] = true
		if excluded[q.ID] {
			continue
		}
		if t, ok := lastCorrect[q.ID]; ok && !cutoff.IsZero() && !t.Before(cutoff) {
			continue
		}
		w := 1.0
		if correct, answered := lastResult[q.ID]; answered && !correct {
			w = retryBoost
		}
		out = append(out, candidate{q: q, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].q.ID < out[j].q.ID })
	return out
}

func (r *run) tierFor(domainID string) model.Difficulty {
	t, ok := r.tiers[domainID]
	if !ok || !t.Valid() {
		t = model.DifficultyMedium
	}
	return t
}

// atOrBelow lists target then each easier tier, staying inside the request range.
func (r *run) atOrBelow(target model.Difficulty) []model.Difficulty {
	target = target.Clamp(r.lo, r.hi)
	var out []model.Difficulty
	for rank := target.Rank(); rank >= r.lo.Rank(); rank-- {
		out = append(out, model.AllDifficulties()[rank])
	}
	return out
}

func (r *run) fillGap(domains []model.KnowledgeGap, n int) int {
	if n <= 0 || len(domains) == 0 {
		return 0
	}
	weights := make([]float64, len(domains))
	for i, g := range domains {
		weights[i] = g.PriorityScore
	}
	shares := apportion(n, weights)

	got := 0
	for i, g := range domains {
		got += r.take(g.DomainID, r.atOrBelow(r.tierFor(g.DomainID)), shares[i], CategoryGap)
	}
	// Domains that ran dry hand their slots to the next ranked domain with questions left.
	for _, g := range domains {
		if got >= n {
			break
		}
		got += r.take(g.DomainID, r.atOrBelow(r.tierFor(g.DomainID)), n-got, CategoryGap)
	}
	return got
}

func (r *run) fillMaintenance(domains []string, n int) int {
	if n <= 0 || len(domains) == 0 {
		return 0
	}
	shares := apportion(n, make([]float64, len(domains)))
	got := 0
	for i, id := range domains {
		got += r.take(id, r.atOrBelow(r.tierFor(id)), shares[i], CategoryMaintenance)
	}
	for _, id := range domains {
		if got >= n {
			break
		}
		got += r.take(id, r.atOrBelow(r.tierFor(id)), n-got, CategoryMaintenance)
	}
	return got
}

func (r *run) fillStretch(domains []model.KnowledgeGap, n int) int {
	if n <= 0 || len(domains) == 0 {
		return 0
	}
	weights := make([]float64, len(domains))
	for i, g := range domains {
		weights[i] = g.PriorityScore
	}
	shares := apportion(n, weights)

	tierOf := func(id string) []model.Difficulty {
		return []model.Difficulty{r.tierFor(id).Step(1).Clamp(r.lo, r.hi)}
	}
	got := 0
	for i, g := range domains {
		got += r.take(g.DomainID, tierOf(g.DomainID), shares[i], CategoryStretch)
	}
	for _, g := range domains {
		if got >= n {
			break
		}
		got += r.take(g.DomainID, tierOf(g.DomainID), n-got, CategoryStretch)
	}
	return got
}

// fillRemaining draws from whatever eligible questions are left.
func (r *run) fillRemaining(n int) {
	var rest []candidate
	for _, c := range r.pool {
		if !r.used[c.q.ID] {
			rest = append(rest, c)
		}
	}
	for _, c := range sample(r.rng, rest, n) {
		r.used[c.q.ID] = true
		r.picks = append(r.picks, Pick{Question: c.q, Category: CategoryFill})
	}
}

// take draws up to n unused questions from one domain, exhausting each tier
// in order before moving to the next.
func (r *run) take(domainID string, tiers []model.Difficulty, n int, cat Category) int {
	got := 0
	for _, tier := range tiers {
		if got >= n {
			break
		}
		var pool []candidate
		for _, c := range r.pool {
			if c.q.DomainID == domainID && c.q.Difficulty == tier && !r.used[c.q.ID] {
				pool = append(pool, c)
			}
		}
		for _, c := range sample(r.rng, pool, n-got) {
			r.used[c.q.ID] = true
			r.picks = append(r.picks, Pick{Question: c.q, Category: cat})
			got++
		}
	}
	return got
}

// sample draws up to n candidates without replacement, each draw proportional to weight.
func sample(rng *rand.Rand, pool []candidate, n int) []candidate {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	rest := make([]candidate, len(pool))
	copy(rest, pool)

	var out []candidate
	for len(out) < n && len(rest) > 0 {
		var total float64
		for _, c := range rest {
			total += c.weight
		}
		x := rng.Float64() * total
		idx := len(rest) - 1
		for i, c := range rest {
			x -= c.weight
			if x < 0 {
				idx = i
				break
			}
		}
		out = append(out, rest[idx])
		rest = append(rest[:idx], rest[idx+1:]...)
	}
	return out
}

// Random picks up to count questions uniformly, ignoring mastery. It backs
// practice when personalization is unavailable.
func Random(candidates []model.Question, count int, rng *rand.Rand) []model.Question {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}
	pool := make([]model.Question, len(candidates))
	copy(pool, candidates)
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count < len(pool) {
		pool = pool[:count]
	}
	return pool
}
