// Package engine is the boundary of the adaptive learning engine. It
// validates input, loads a user's snapshot from the repository, runs the
// pure components over it and persists the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examprep/internal/cache"
	"github.com/abhisek/examprep/internal/config"
	"github.com/abhisek/examprep/internal/gaps"
	"github.com/abhisek/examprep/internal/insights"
	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/mastery"
	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
	"github.com/abhisek/examprep/internal/selector"
	"github.com/abhisek/examprep/internal/store"
)

// Config wires optional collaborators and tunables. Zero values take defaults.
type Config struct {
	Cache  cache.GapCache
	Logger *logger.Logger
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Seed fixes question sampling. Zero seeds from the clock.
	Seed uint64

	ExcludeRecentDays int
	InsightWindow     time.Duration
	InsightRetention  int

	Mastery mastery.Calculator
}

// ConfigFrom maps the engine section of the application config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		ExcludeRecentDays: c.Engine.ExcludeRecentDays,
		InsightWindow:     c.Engine.InsightWindow,
		InsightRetention:  c.Engine.InsightRetention,
	}
}

// Service runs engine operations against a repository.
type Service struct {
	repo     store.Repository
	cache    cache.GapCache
	log      *logger.Logger
	now      func() time.Time
	calc     mastery.Calculator
	insights insights.Generator

	excludeRecentDays int
	retention         int

	locks *userLocks

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates an engine over repo.
func NewService(repo store.Repository, cfg Config) *Service {
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.ExcludeRecentDays == 0 {
		cfg.ExcludeRecentDays = selector.DefaultExcludeRecentDays
	}
	if cfg.InsightRetention <= 0 {
		cfg.InsightRetention = 100
	}
	if cfg.Mastery == (mastery.Calculator{}) {
		cfg.Mastery = mastery.NewCalculator()
	}
	return &Service{
		repo:              repo,
		cache:             cfg.Cache,
		log:               cfg.Logger,
		now:               cfg.Now,
		calc:              cfg.Mastery,
		insights:          insights.Generator{Window: cfg.InsightWindow},
		excludeRecentDays: cfg.ExcludeRecentDays,
		retention:         cfg.InsightRetention,
		locks:             newUserLocks(),
		rng:               rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// RecordAnswer validates and appends ev, then recalculates the user's
// profile. A missing ID or timestamp is filled in.
func (s *Service) RecordAnswer(ctx context.Context, ev model.AnswerEvent) (*model.LearningProfile, error) {
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.AnsweredAt.IsZero() {
		ev.AnsweredAt = s.now()
	}

	unlock := s.locks.lock(ev.UserID)
	defer unlock()

	if err := s.repo.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}
	s.log.Debug("answer recorded", "user", ev.UserID, "question", ev.QuestionID, "correct", ev.IsCorrect)

	profile, _, err := s.recalculate(ctx, ev.UserID)
	return profile, err
}

// Recalculate rebuilds and saves the user's profile from stored history.
// Running it twice over the same history yields the same masteries.
func (s *Service) Recalculate(ctx context.Context, userID string) (*model.LearningProfile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	profile, _, err := s.recalculate(ctx, userID)
	return profile, err
}

// recalculate must be called with the user's lock held.
func (s *Service) recalculate(ctx context.Context, userID string) (*model.LearningProfile, *performance.History, error) {
	events, err := s.repo.LoadHistory(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	prev, err := s.repo.LoadProfile(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	total, err := s.repo.CountAnswers(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("count answers: %w", err)
	}

	now := s.now()
	h := performance.NewHistory(events)
	var previous []model.DomainMastery
	if prev != nil {
		previous = prev.DomainMasteries
	}

	profile := &model.LearningProfile{
		UserID:           userID,
		LastCalculatedAt: now,
		TotalAnswered:    total,
		DomainMasteries:  s.calc.Recalculate(h, previous, now),
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("save profile: %w", err)
	}
	s.invalidate(ctx, userID)

	s.log.Debug("profile recalculated", "user", userID, "domains", len(profile.DomainMasteries), "answers", total)
	return profile, h, nil
}

// Profile is the learning profile with its derived views.
type Profile struct {
	*model.LearningProfile
	Gaps     []model.KnowledgeGap     `json:"gaps"`
	Overall  performance.OverallStats `json:"overall"`
	ByDomain []model.DomainStats      `json:"by_domain"`
	Trend    []performance.DayPoint   `json:"trend"`
}

const trendDays = 14

// GetLearningProfile returns masteries, the top gaps and the latest insights.
// A user with no saved profile gets an empty one.
func (s *Service) GetLearningProfile(ctx context.Context, userID string) (*Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	lp, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.LoadHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	gapList, err := s.knowledgeGaps(ctx, userID, lp.DomainMasteries)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentInsights(ctx, userID, profileInsightLimit)
	if err != nil {
		return nil, fmt.Errorf("load insights: %w", err)
	}
	lp.RecentInsights = recent

	h := performance.NewHistory(events)
	return &Profile{
		LearningProfile: lp,
		Gaps:            gaps.Top(gapList, profileGapLimit),
		Overall:         performance.Overall(h),
		ByDomain:        performance.StatsByDomain(h),
		Trend:           performance.DailyTrend(h, trendDays, s.now()),
	}, nil
}

// loadProfile returns the saved profile with decay applied up to now. A user
// with no saved profile gets an empty one.
func (s *Service) loadProfile(ctx context.Context, userID string) (*model.LearningProfile, error) {
	lp, err := s.repo.LoadProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if lp == nil {
		return &model.LearningProfile{UserID: userID}, nil
	}
	lp.DomainMasteries = s.calc.Refresh(lp.DomainMasteries, s.now())
	return lp, nil
}

// GetKnowledgeGaps returns up to limit gaps in priority order. A zero limit
// uses the default.
func (s *Service) GetKnowledgeGaps(ctx context.Context, userID string, limit int) ([]model.KnowledgeGap, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit, err := limitOrDefault("limit", limit, DefaultGapLimit, MaxGapLimit)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cachedGaps(ctx, userID); ok {
		return gaps.Top(cached, limit), nil
	}
	lp, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.identify(ctx, userID, lp.DomainMasteries)
	if err != nil {
		return nil, err
	}
	return gaps.Top(list, limit), nil
}

// knowledgeGaps returns the cached gaps or identifies them from masteries.
func (s *Service) knowledgeGaps(ctx context.Context, userID string, masteries []model.DomainMastery) ([]model.KnowledgeGap, error) {
	if cached, ok := s.cachedGaps(ctx, userID); ok {
		return cached, nil
	}
	return s.identify(ctx, userID, masteries)
}

// gapKey scopes cached gaps to the current day so decay shows up on reads
// without a recalculation in between.
func (s *Service) gapKey(userID string) string {
	return userID + "@" + s.now().UTC().Format(time.DateOnly)
}

func (s *Service) cachedGaps(ctx context.Context, userID string) ([]model.KnowledgeGap, bool) {
	cached, ok, err := s.cache.Get(ctx, s.gapKey(userID))
	if err != nil {
		s.log.Warn("gap cache read failed", "user", userID, "error", err)
		return nil, false
	}
	return cached, ok
}

// identify computes gaps against the domain catalog and caches them.
func (s *Service) identify(ctx context.Context, userID string, masteries []model.DomainMastery) ([]model.KnowledgeGap, error) {
	domains, err := s.repo.LoadDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("load domains: %w", err)
	}
	list := gaps.Identify(masteries, domains)
	if err := s.cache.Set(ctx, s.gapKey(userID), list); err != nil {
		s.log.Warn("gap cache write failed", "user", userID, "error", err)
	}
	return list, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, s.gapKey(userID)); err != nil {
		s.log.Warn("gap cache invalidate failed", "user", userID, "error", err)
	}
}

// Recommendation is a selected practice set.
type Recommendation struct {
	selector.Result
	// Degraded is set when user state could not be loaded and the set was
	// drawn at random.
	Degraded bool `json:"degraded"`
}

// GetRecommendedQuestions selects the next practice set for userID. If the
// user's state is unavailable but the bank is readable, it degrades to a
// random selection instead of failing.
func (s *Service) GetRecommendedQuestions(ctx context.Context, userID string, params RecommendParams) (*Recommendation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	params, exclude, err := params.normalize(s.excludeRecentDays)
	if err != nil {
		return nil, err
	}

	pool, err := s.repo.Candidates(ctx, filterFor(params))
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	req, err := s.selectionRequest(ctx, userID, params, exclude, pool)
	if errors.Is(err, store.ErrUnavailable) {
		s.log.Warn("user state unavailable, falling back to random selection", "user", userID, "error", err)
		return s.randomRecommendation(pool, params.Count), nil
	}
	if err != nil {
		return nil, err
	}

	s.rngMu.Lock()
	res := selector.New(s.rng).Select(req)
	s.rngMu.Unlock()

	if res.Shortfall > 0 {
		s.log.Info("recommendation shortfall", "user", userID, "requested", params.Count, "shortfall", res.Shortfall)
	}
	return &Recommendation{Result: res}, nil
}

func (s *Service) selectionRequest(ctx context.Context, userID string, params RecommendParams, exclude int, pool []model.Question) (selector.Request, error) {
	events, err := s.repo.LoadHistory(ctx, userID)
	if err != nil {
		return selector.Request{}, fmt.Errorf("load history: %w", err)
	}
	lp, err := s.loadProfile(ctx, userID)
	if err != nil {
		return selector.Request{}, err
	}
	gapList, err := s.knowledgeGaps(ctx, userID, lp.DomainMasteries)
	if err != nil {
		return selector.Request{}, err
	}
	now := s.now()
	var recentlyCorrect []string
	if exclude > 0 {
		since := now.Add(-time.Duration(exclude) * 24 * time.Hour)
		recentlyCorrect, err = s.repo.RecentCorrectQuestionIDs(ctx, userID, since)
		if err != nil {
			return selector.Request{}, fmt.Errorf("load recent answers: %w", err)
		}
	}
	return selector.Request{
		Count:             params.Count,
		History:           performance.NewHistory(events),
		Masteries:         lp.DomainMasteries,
		Gaps:              gapList,
		Candidates:        pool,
		DomainID:          params.DomainID,
		DifficultyMin:     params.DifficultyMin,
		DifficultyMax:     params.DifficultyMax,
		ExcludeRecentDays: exclude,
		RecentlyCorrect:   recentlyCorrect,
		Now:               now,
	}, nil
}

// FallbackQuestions picks count questions at random from the bank, ignoring
// the user's state.
func (s *Service) FallbackQuestions(ctx context.Context, params RecommendParams) ([]model.Question, error) {
	params, _, err := params.normalize(s.excludeRecentDays)
	if err != nil {
		return nil, err
	}
	pool, err := s.repo.Candidates(ctx, filterFor(params))
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return selector.Random(pool, params.Count, s.rng), nil
}

func (s *Service) randomRecommendation(pool []model.Question, count int) *Recommendation {
	s.rngMu.Lock()
	picked := selector.Random(pool, count, s.rng)
	s.rngMu.Unlock()

	rec := &Recommendation{Degraded: true}
	rec.Allocation = selector.Allocate(count)
	for _, q := range picked {
		rec.Questions = append(rec.Questions, selector.Pick{Question: q})
	}
	rec.Shortfall = count - len(picked)
	return rec
}

func filterFor(p RecommendParams) model.QuestionFilter {
	return model.QuestionFilter{
		DomainID:      p.DomainID,
		DifficultyMin: p.DifficultyMin,
		DifficultyMax: p.DifficultyMax,
	}
}

// GetRecentInsights returns up to limit insights, newest first.
func (s *Service) GetRecentInsights(ctx context.Context, userID string, limit int) ([]model.Insight, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit, err := limitOrDefault("limit", limit, DefaultInsightLimit, MaxInsightLimit)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.RecentInsights(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load insights: %w", err)
	}
	return list, nil
}

// GenerateInsights recalculates the profile, derives insights from it and
// appends the ones not already pending for the user. Stored insights beyond
// the retention limit are pruned.
func (s *Service) GenerateInsights(ctx context.Context, userID string) ([]model.Insight, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	profile, h, err := s.recalculate(ctx, userID)
	if err != nil {
		return nil, err
	}
	domains, err := s.repo.LoadDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("load domains: %w", err)
	}
	gapList, err := s.identify(ctx, userID, profile.DomainMasteries)
	if err != nil {
		return nil, err
	}

	now := s.now()
	generated := s.insights.Generate(insights.Input{
		UserID:        userID,
		History:       h,
		Masteries:     profile.DomainMasteries,
		Gaps:          gapList,
		Domains:       domains,
		TotalAnswered: profile.TotalAnswered,
		Now:           now,
	})

	existing, err := s.repo.RecentInsights(ctx, userID, s.retention)
	if err != nil {
		return nil, fmt.Errorf("load insights: %w", err)
	}
	fresh := withoutPending(generated, existing)
	if len(fresh) == 0 {
		return nil, nil
	}

	if err := s.repo.AppendInsights(ctx, fresh); err != nil {
		return nil, fmt.Errorf("append insights: %w", err)
	}
	if err := s.repo.PruneInsights(ctx, userID, s.retention); err != nil {
		s.log.Warn("insight prune failed", "user", userID, "error", err)
	}
	s.log.Info("insights generated", "user", userID, "count", len(fresh))
	return fresh, nil
}

// withoutPending drops generated insights that repeat an unread one.
func withoutPending(generated, existing []model.Insight) []model.Insight {
	type key struct {
		typ    model.InsightType
		domain string
		title  string
	}
	pending := make(map[key]bool)
	for _, in := range existing {
		if !in.IsRead {
			pending[key{in.Type, in.DomainID, in.Title}] = true
		}
	}
	var out []model.Insight
	for _, in := range generated {
		if pending[key{in.Type, in.DomainID, in.Title}] {
			continue
		}
		out = append(out, in)
	}
	return out
}

// MarkInsightRead flags an insight as read.
func (s *Service) MarkInsightRead(ctx context.Context, userID, insightID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if insightID == "" {
		return invalid("insight_id", "required")
	}
	if err := s.repo.MarkInsightRead(ctx, userID, insightID); err != nil {
		return fmt.Errorf("mark insight read: %w", err)
	}
	return nil
}

// ImportAnswers appends a batch of answers and recalculates each affected
// user once. Events are validated up front; nothing is written if any is
// invalid. It returns the number of distinct users recalculated.
func (s *Service) ImportAnswers(ctx context.Context, events []model.AnswerEvent) (int, error) {
	byUser := make(map[string][]model.AnswerEvent)
	var users []string
	for i, ev := range events {
		if err := validateEvent(ev); err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.AnsweredAt.IsZero() {
			ev.AnsweredAt = s.now()
		}
		if _, ok := byUser[ev.UserID]; !ok {
			users = append(users, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	for _, userID := range users {
		if err := s.importUser(ctx, userID, byUser[userID]); err != nil {
			return 0, err
		}
	}
	s.log.Info("answers imported", "events", len(events), "users", len(users))
	return len(users), nil
}

func (s *Service) importUser(ctx context.Context, userID string, events []model.AnswerEvent) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	for _, ev := range events {
		if err := s.repo.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("import answer %s: %w", ev.ID, err)
		}
	}
	if _, _, err := s.recalculate(ctx, userID); err != nil {
		return fmt.Errorf("recalculate %s: %w", userID, err)
	}
	return nil
}
