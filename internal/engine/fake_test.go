package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/store"
)

// fakeRepo is an in-memory store.Repository.
type fakeRepo struct {
	mu        sync.Mutex
	events    []model.AnswerEvent
	profiles  map[string]*model.LearningProfile
	insights  []model.Insight
	domains   []model.Domain
	questions []model.Question

	historyErr  error
	domainLoads int
}

var _ store.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: make(map[string]*model.LearningProfile),
		domains:  model.DefaultDomains(),
	}
}

func (f *fakeRepo) LoadHistory(_ context.Context, userID string) ([]model.AnswerEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []model.AnswerEvent
	for _, ev := range f.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, ev model.AnswerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.events {
		if existing.ID == ev.ID {
			return nil
		}
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) RecentCorrectQuestionIDs(_ context.Context, userID string, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	seen := make(map[string]bool)
	var out []string
	for _, ev := range f.events {
		if ev.UserID == userID && ev.IsCorrect && !ev.AnsweredAt.Before(since) && !seen[ev.QuestionID] {
			seen[ev.QuestionID] = true
			out = append(out, ev.QuestionID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRepo) CountAnswers(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) LoadProfile(_ context.Context, userID string) (*model.LearningProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.DomainMasteries = append([]model.DomainMastery(nil), p.DomainMasteries...)
	return &cp, nil
}

func (f *fakeRepo) SaveProfile(_ context.Context, p *model.LearningProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	cp.DomainMasteries = append([]model.DomainMastery(nil), p.DomainMasteries...)
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeRepo) LoadDomainWeights(context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.domains))
	for _, d := range f.domains {
		out[d.ID] = d.Weight
	}
	return out, nil
}

func (f *fakeRepo) LoadDomains(context.Context) ([]model.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domainLoads++
	return append([]model.Domain(nil), f.domains...), nil
}

func (f *fakeRepo) Candidates(_ context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.questions {
		if q.Active && filter.Matches(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendInsights(_ context.Context, list []model.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights = append(f.insights, list...)
	return nil
}

// userInsights returns the user's insights newest first. Caller holds mu.
func (f *fakeRepo) userInsights(userID string) []model.Insight {
	var out []model.Insight
	for i := len(f.insights) - 1; i >= 0; i-- {
		if f.insights[i].UserID == userID {
			out = append(out, f.insights[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeRepo) RecentInsights(_ context.Context, userID string, limit int) ([]model.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.userInsights(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) MarkInsightRead(_ context.Context, userID, insightID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.insights {
		if f.insights[i].UserID == userID && f.insights[i].ID == insightID {
			f.insights[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRepo) PruneInsights(_ context.Context, userID string, keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := make(map[string]bool)
	for i, in := range f.userInsights(userID) {
		if i < keep {
			kept[in.ID] = true
		}
	}
	var out []model.Insight
	for _, in := range f.insights {
		if in.UserID != userID || kept[in.ID] {
			out = append(out, in)
		}
	}
	f.insights = out
	return nil
}
