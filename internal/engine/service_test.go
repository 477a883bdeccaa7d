package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examprep/internal/cache"
	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
	"github.com/abhisek/examprep/internal/selector"
	"github.com/abhisek/examprep/internal/store"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo, cfg Config) *Service {
	cfg.Now = func() time.Time { return testNow }
	if cfg.Seed == 0 {
		cfg.Seed = 7
	}
	return NewService(repo, cfg)
}

func bank(domain string, d model.Difficulty, n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{
			ID:         fmt.Sprintf("%s-%s-%d", domain, d, i),
			DomainID:   domain,
			Difficulty: d,
			Active:     true,
		}
	}
	return out
}

func answer(user, domain string, correct bool, ago time.Duration) model.AnswerEvent {
	return model.AnswerEvent{
		UserID:      user,
		QuestionID:  fmt.Sprintf("q-%s-%d", domain, ago),
		DomainID:    domain,
		Difficulty:  model.DifficultyMedium,
		IsCorrect:   correct,
		TimeSpentMs: 30_000,
		AnsweredAt:  testNow.Add(-ago),
	}
}

func TestRecordAnswer_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})
	ctx := context.Background()

	tests := []struct {
		name  string
		ev    model.AnswerEvent
		field string
	}{
		{"missing user", model.AnswerEvent{QuestionID: "q", DomainID: "people", Difficulty: model.DifficultyEasy}, "user_id"},
		{"missing question", model.AnswerEvent{UserID: "u", DomainID: "people", Difficulty: model.DifficultyEasy}, "question_id"},
		{"missing domain", model.AnswerEvent{UserID: "u", QuestionID: "q", Difficulty: model.DifficultyEasy}, "domain_id"},
		{"bad difficulty", model.AnswerEvent{UserID: "u", QuestionID: "q", DomainID: "people", Difficulty: "EXPERT"}, "difficulty"},
		{"negative time", model.AnswerEvent{UserID: "u", QuestionID: "q", DomainID: "people", Difficulty: model.DifficultyEasy, TimeSpentMs: -1}, "time_spent_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordAnswer(ctx, tt.ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecordAnswer_RecalculatesProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	var profile *model.LearningProfile
	for i := 0; i < 4; i++ {
		var err error
		ev := answer("u1", model.DomainPeople, true, time.Duration(i+1)*time.Hour)
		profile, err = svc.RecordAnswer(ctx, ev)
		require.NoError(t, err)
	}

	require.NotNil(t, profile)
	assert.Equal(t, 4, profile.TotalAnswered)
	assert.True(t, profile.LastCalculatedAt.Equal(testNow))
	m := profile.Mastery(model.DomainPeople)
	require.NotNil(t, m)
	assert.Equal(t, 4, m.SampleCount)
	assert.False(t, m.LowConfidence)
	assert.Greater(t, m.Score, 0.0)

	for _, ev := range repo.events {
		assert.NotEmpty(t, ev.ID)
	}
	saved, err := repo.LoadProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.DomainMasteries, 1)
}

func TestRecordAnswer_FillsTimestamp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})

	ev := answer("u1", model.DomainProcess, false, 0)
	ev.AnsweredAt = time.Time{}
	_, err := svc.RecordAnswer(context.Background(), ev)
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	assert.True(t, repo.events[0].AnsweredAt.Equal(testNow))
}

func TestRecalculate_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		ev := answer("u1", model.DomainProcess, i%3 != 0, time.Duration(i+1)*24*time.Hour)
		ev.ID = fmt.Sprintf("e%d", i)
		require.NoError(t, repo.AppendEvent(ctx, ev))
	}

	first, err := svc.Recalculate(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.Recalculate(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first.DomainMasteries, second.DomainMasteries)
	assert.Equal(t, 12, second.TotalAnswered)
}

func TestRecalculate_RequiresUser(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})
	_, err := svc.Recalculate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetLearningProfile_NewUser(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})

	p, err := svc.GetLearningProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", p.UserID)
	assert.Empty(t, p.DomainMasteries)
	assert.Len(t, p.Gaps, 3)
	for _, g := range p.Gaps {
		assert.Equal(t, model.GapNeverLearned, g.GapType)
	}
	assert.Equal(t, 0, p.Overall.SampleCount)
	assert.Empty(t, p.Trend)
}

func TestGetLearningProfile_IncludesInsights(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.AppendInsights(ctx, []model.Insight{{
			ID:        fmt.Sprintf("i%d", i),
			UserID:    "u1",
			Type:      model.InsightPattern,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}}))
	}

	p, err := svc.GetLearningProfile(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, p.RecentInsights, profileInsightLimit)
	assert.Equal(t, "i11", p.RecentInsights[0].ID)
}

func TestGetRecommendedQuestions_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})
	ctx := context.Background()
	days := func(n int) *int { return &n }

	tests := []struct {
		name   string
		params RecommendParams
		field  string
	}{
		{"count too large", RecommendParams{Count: 51}, "count"},
		{"negative count", RecommendParams{Count: -1}, "count"},
		{"exclude too long", RecommendParams{ExcludeRecentDays: days(31)}, "exclude_recent_days"},
		{"negative exclude", RecommendParams{ExcludeRecentDays: days(-1)}, "exclude_recent_days"},
		{"inverted range", RecommendParams{DifficultyMin: model.DifficultyHard, DifficultyMax: model.DifficultyEasy}, "difficulty_min"},
		{"unknown tier", RecommendParams{DifficultyMax: "IMPOSSIBLE"}, "difficulty_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetRecommendedQuestions(ctx, "u1", tt.params)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.GetRecommendedQuestions(ctx, "", RecommendParams{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetRecommendedQuestions_DefaultCount(t *testing.T) {
	repo := newFakeRepo()
	for _, d := range model.DefaultDomains() {
		for _, tier := range model.AllDifficulties() {
			repo.questions = append(repo.questions, bank(d.ID, tier, 10)...)
		}
	}
	svc := newTestService(repo, Config{})

	rec, err := svc.GetRecommendedQuestions(context.Background(), "u1", RecommendParams{})
	require.NoError(t, err)
	assert.False(t, rec.Degraded)
	assert.Len(t, rec.Questions, DefaultCount)
	assert.Equal(t, 0, rec.Shortfall)
	assert.Equal(t, DefaultCount, rec.Allocation.Total())

	seen := make(map[string]bool)
	for _, p := range rec.Questions {
		assert.False(t, seen[p.Question.ID], "duplicate %s", p.Question.ID)
		seen[p.Question.ID] = true
	}
}

func TestGetRecommendedQuestions_DomainFilter(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = append(bank(model.DomainPeople, model.DifficultyEasy, 10), bank(model.DomainProcess, model.DifficultyEasy, 10)...)
	svc := newTestService(repo, Config{})

	rec, err := svc.GetRecommendedQuestions(context.Background(), "u1", RecommendParams{Count: 5, DomainID: model.DomainProcess})
	require.NoError(t, err)
	require.Len(t, rec.Questions, 5)
	for _, p := range rec.Questions {
		assert.Equal(t, model.DomainProcess, p.Question.DomainID)
	}
}

func TestGetRecommendedQuestions_ShortfallReported(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = bank(model.DomainPeople, model.DifficultyMedium, 3)
	svc := newTestService(repo, Config{})

	rec, err := svc.GetRecommendedQuestions(context.Background(), "u1", RecommendParams{Count: 8})
	require.NoError(t, err)
	assert.Len(t, rec.Questions, 3)
	assert.Equal(t, 5, rec.Shortfall)
}

func TestGetRecommendedQuestions_DegradesWhenStateUnavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = bank(model.DomainPeople, model.DifficultyMedium, 20)
	repo.historyErr = fmt.Errorf("load: %w", store.ErrUnavailable)
	svc := newTestService(repo, Config{})

	rec, err := svc.GetRecommendedQuestions(context.Background(), "u1", RecommendParams{Count: 6})
	require.NoError(t, err)
	assert.True(t, rec.Degraded)
	assert.Len(t, rec.Questions, 6)
}

func TestGetRecommendedQuestions_OtherErrorsSurface(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = bank(model.DomainPeople, model.DifficultyMedium, 5)
	repo.historyErr = errors.New("boom")
	svc := newTestService(repo, Config{})

	_, err := svc.GetRecommendedQuestions(context.Background(), "u1", RecommendParams{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrUnavailable)
}

func TestFallbackQuestions(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = append(bank(model.DomainPeople, model.DifficultyEasy, 4), bank(model.DomainPeople, model.DifficultyHard, 4)...)
	svc := newTestService(repo, Config{})

	qs, err := svc.FallbackQuestions(context.Background(), RecommendParams{Count: 10, DifficultyMin: model.DifficultyHard})
	require.NoError(t, err)
	assert.Len(t, qs, 4)
	for _, q := range qs {
		assert.Equal(t, model.DifficultyHard, q.Difficulty)
	}
}

func TestGetKnowledgeGaps_LimitAndCache(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{Cache: cache.NewMemory(time.Hour)})
	ctx := context.Background()

	list, err := svc.GetKnowledgeGaps(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Rank)
	// Process carries the largest exam weight.
	assert.Equal(t, model.DomainProcess, list[0].DomainID)

	loads := repo.domainLoads
	all, err := svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, loads, repo.domainLoads, "second read should hit the cache")

	_, err = svc.GetKnowledgeGaps(ctx, "u1", MaxGapLimit+1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetKnowledgeGaps_InvalidatedByAnswer(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{Cache: cache.NewMemory(time.Hour)})
	ctx := context.Background()

	_, err := svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordAnswer(ctx, answer("u1", model.DomainPeople, false, time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}

	list, err := svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	var people *model.KnowledgeGap
	for i := range list {
		if list[i].DomainID == model.DomainPeople {
			people = &list[i]
		}
	}
	require.NotNil(t, people)
	assert.Equal(t, model.GapStruggling, people.GapType)
}

func TestGetRecentInsights_Limits(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, repo.AppendInsights(ctx, []model.Insight{{
			ID:        fmt.Sprintf("i%d", i),
			UserID:    "u1",
			CreatedAt: testNow.Add(time.Duration(i) * time.Second),
		}}))
	}

	list, err := svc.GetRecentInsights(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, DefaultInsightLimit)

	_, err = svc.GetRecentInsights(ctx, "u1", MaxInsightLimit+1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGenerateInsights_AppendsAndSuppressesPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ev := answer("u1", model.DomainPeople, false, time.Duration(i+1)*time.Hour)
		ev.ID = fmt.Sprintf("e%d", i)
		require.NoError(t, repo.AppendEvent(ctx, ev))
	}

	first, err := svc.GenerateInsights(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for _, in := range first {
		assert.Equal(t, "u1", in.UserID)
		assert.NotEmpty(t, in.ID)
		assert.True(t, in.CreatedAt.Equal(testNow))
	}
	assert.Equal(t, model.InsightAlert, first[0].Type)
	assert.Equal(t, model.DomainPeople, first[0].DomainID)

	again, err := svc.GenerateInsights(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, repo.insights, len(first))

	// Once read, the same condition may be raised again.
	for _, in := range first {
		require.NoError(t, svc.MarkInsightRead(ctx, "u1", in.ID))
	}
	third, err := svc.GenerateInsights(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, third, len(first))
}

func TestGenerateInsights_PrunesToRetention(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{InsightRetention: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendInsights(ctx, []model.Insight{{
			ID:        fmt.Sprintf("old%d", i),
			UserID:    "u1",
			IsRead:    true,
			CreatedAt: testNow.Add(-time.Duration(i+1) * time.Hour),
		}}))
	}
	for i := 0; i < 10; i++ {
		ev := answer("u1", model.DomainPeople, false, time.Duration(i+1)*time.Hour)
		ev.ID = fmt.Sprintf("e%d", i)
		require.NoError(t, repo.AppendEvent(ctx, ev))
	}

	fresh, err := svc.GenerateInsights(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, fresh)

	stored, err := repo.RecentInsights(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.True(t, stored[0].CreatedAt.Equal(testNow))
}

func TestMarkInsightRead(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	err := svc.MarkInsightRead(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = svc.MarkInsightRead(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_ConcurrentUsers(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(u, i int) {
				defer wg.Done()
				ev := answer(fmt.Sprintf("u%d", u), model.DomainProcess, i%2 == 0, time.Duration(i+1)*time.Minute)
				_, err := svc.RecordAnswer(ctx, ev)
				assert.NoError(t, err)
			}(u, i)
		}
	}
	wg.Wait()

	for u := 0; u < 4; u++ {
		p, err := repo.LoadProfile(ctx, fmt.Sprintf("u%d", u))
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 5, p.TotalAnswered)
	}
	assert.Equal(t, 0, svc.locks.size())
}

func TestImportAnswers(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	var batch []model.AnswerEvent
	for i := 0; i < 6; i++ {
		batch = append(batch, answer(fmt.Sprintf("u%d", i%2), model.DomainPeople, i%3 == 0, time.Duration(i+1)*time.Hour))
	}

	users, err := svc.ImportAnswers(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, users)
	assert.Len(t, repo.events, 6)

	for _, u := range []string{"u0", "u1"} {
		p, err := repo.LoadProfile(ctx, u)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 3, p.TotalAnswered)
	}
}

func TestImportAnswers_RejectsWholeBatch(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})

	batch := []model.AnswerEvent{
		answer("u1", model.DomainPeople, true, time.Hour),
		{UserID: "u1", DomainID: model.DomainPeople, Difficulty: model.DifficultyEasy},
	}
	_, err := svc.ImportAnswers(context.Background(), batch)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, repo.events)
}

func TestReads_DecayIdleMastery(t *testing.T) {
	repo := newFakeRepo()
	repo.questions = bank(model.DomainPeople, model.DifficultyHard, 10)
	clock := testNow
	svc := NewService(repo, Config{
		Cache: cache.NewMemory(0),
		Now:   func() time.Time { return clock },
		Seed:  7,
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.RecordAnswer(ctx, model.AnswerEvent{
			UserID:      "u1",
			QuestionID:  fmt.Sprintf("old-%d", i),
			DomainID:    model.DomainPeople,
			Difficulty:  model.DifficultyHard,
			IsCorrect:   true,
			TimeSpentMs: 30_000,
		})
		require.NoError(t, err)
	}
	list, err := svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	for _, g := range list {
		require.NotEqual(t, model.DomainPeople, g.DomainID, "People is mastered right after practice")
	}

	clock = clock.Add(8 * 7 * 24 * time.Hour)

	list, err = svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	var people *model.KnowledgeGap
	for i := range list {
		if list[i].DomainID == model.DomainPeople {
			people = &list[i]
		}
	}
	require.NotNil(t, people, "idle People should surface as a gap")
	assert.Equal(t, model.GapForgotten, people.GapType)
	assert.InDelta(t, 60, people.Score, 0.001)

	p, err := svc.GetLearningProfile(ctx, "u1")
	require.NoError(t, err)
	m := p.Mastery(model.DomainPeople)
	require.NotNil(t, m)
	assert.InDelta(t, 60, m.Score, 0.001)
	assert.InDelta(t, 100, m.PeakScore, 0.001)

	rec, err := svc.GetRecommendedQuestions(ctx, "u1", RecommendParams{Count: 5})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Questions)
	for _, pick := range rec.Questions {
		assert.NotEqual(t, selector.CategoryMaintenance, pick.Category, "decayed domain is no longer maintenance")
	}

	// Reads do not rewrite the saved profile.
	saved, err := repo.LoadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 100, saved.Mastery(model.DomainPeople).Score, 0.001)
}

func TestGetRecommendedQuestions_ExcludesCorrectBeyondHistory(t *testing.T) {
	st, err := store.Open("file:engine_excludes_correct_beyond_history?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	pool := bank(model.DomainPeople, model.DifficultyEasy, 6)
	require.NoError(t, st.UpsertQuestions(ctx, pool))
	target := pool[0]

	require.NoError(t, st.AppendEvent(ctx, model.AnswerEvent{
		ID:         "target",
		UserID:     "u1",
		QuestionID: target.ID,
		DomainID:   model.DomainPeople,
		Difficulty: model.DifficultyEasy,
		IsCorrect:  true,
		AnsweredAt: testNow.Add(-48 * time.Hour),
	}))
	// Enough newer answers to push the correct one out of the history window.
	for i := 0; i < performance.MaxHistory; i++ {
		require.NoError(t, st.AppendEvent(ctx, model.AnswerEvent{
			ID:         fmt.Sprintf("w%03d", i),
			UserID:     "u1",
			QuestionID: fmt.Sprintf("other-%d", i),
			DomainID:   model.DomainPeople,
			Difficulty: model.DifficultyEasy,
			AnsweredAt: testNow.Add(-24*time.Hour + time.Duration(i)*time.Second),
		}))
	}

	for seed := uint64(1); seed <= 5; seed++ {
		svc := NewService(st, Config{Now: func() time.Time { return testNow }, Seed: seed})
		rec, err := svc.GetRecommendedQuestions(ctx, "u1", RecommendParams{Count: 5})
		require.NoError(t, err)
		require.Len(t, rec.Questions, 5)
		for _, p := range rec.Questions {
			assert.NotEqual(t, target.ID, p.Question.ID, "seed %d returned a question answered correctly 2 days ago", seed)
		}
	}
}

func TestGetKnowledgeGaps_CacheScopedToDay(t *testing.T) {
	repo := newFakeRepo()
	clock := testNow
	svc := NewService(repo, Config{
		Cache: cache.NewMemory(0),
		Now:   func() time.Time { return clock },
		Seed:  7,
	})
	ctx := context.Background()

	_, err := svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	loads := repo.domainLoads

	clock = clock.Add(time.Hour)
	_, err = svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, loads, repo.domainLoads, "same day should hit the cache")

	clock = clock.Add(24 * time.Hour)
	_, err = svc.GetKnowledgeGaps(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, loads+1, repo.domainLoads, "a new day recomputes")
}
