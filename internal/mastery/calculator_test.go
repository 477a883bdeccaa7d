package mastery

import (
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
)

const epsilon = 0.001

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

var now = time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)

func answers(domain string, d model.Difficulty, start time.Time, results ...bool) []model.AnswerEvent {
	out := make([]model.AnswerEvent, len(results))
	for i, ok := range results {
		out[i] = model.AnswerEvent{
			ID:          fmt.Sprintf("%s-%d", domain, i),
			UserID:      "u1",
			QuestionID:  fmt.Sprintf("%s-q%d", domain, i),
			DomainID:    domain,
			Difficulty:  d,
			IsCorrect:   ok,
			TimeSpentMs: 30000,
			AnsweredAt:  start.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRecalculate_AllCorrectEasy(t *testing.T) {
	// 10 correct EASY answers in People spread over the last 3 days.
	events := answers(model.DomainPeople, model.DifficultyEasy, now.Add(-72*time.Hour), repeat(true, 10)...)
	for i := range events {
		events[i].AnsweredAt = now.Add(-72*time.Hour + time.Duration(i)*7*time.Hour)
	}
	got := NewCalculator().Recalculate(performance.NewHistory(events), nil, now)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	m := got[0]
	// accuracy 60, consistency 20 (no variance), difficulty 0
	if !almostEqual(m.AccuracyComponent, 60) || !almostEqual(m.ConsistencyComponent, 20) || !almostEqual(m.DifficultyComponent, 0) {
		t.Errorf("components = %f/%f/%f", m.AccuracyComponent, m.ConsistencyComponent, m.DifficultyComponent)
	}
	if !almostEqual(m.Score, 80) {
		t.Errorf("Score = %f, want 80", m.Score)
	}
	if m.Score < Threshold {
		t.Error("domain should not be below the mastery threshold")
	}
	if m.LowConfidence {
		t.Error("10 samples should not be low confidence")
	}
	if m.DifficultyTier != model.DifficultyHard {
		// two promotions: MEDIUM -> HARD after 5, clamped after 10
		t.Errorf("DifficultyTier = %s, want HARD", m.DifficultyTier)
	}
}

func TestRecalculate_LowConfidence(t *testing.T) {
	events := answers(model.DomainProcess, model.DifficultyMedium, now.Add(-time.Hour), true, false)
	m := NewCalculator().Recalculate(performance.NewHistory(events), nil, now)[0]
	if !m.LowConfidence {
		t.Error("2 samples should be low confidence")
	}
	if m.SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", m.SampleCount)
	}
}

func TestRecalculate_ScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tiers := model.AllDifficulties()
	calc := NewCalculator()
	for trial := 0; trial < 200; trial++ {
		var events []model.AnswerEvent
		n := 1 + rng.IntN(80)
		start := now.Add(-time.Duration(rng.IntN(24*90)) * time.Hour)
		for i := 0; i < n; i++ {
			events = append(events, model.AnswerEvent{
				DomainID:   model.DomainPeople,
				Difficulty: tiers[rng.IntN(len(tiers))],
				IsCorrect:  rng.IntN(2) == 0,
				AnsweredAt: start.Add(time.Duration(i) * time.Minute),
			})
		}
		prev := []model.DomainMastery{{DomainID: model.DomainPeople, PeakScore: rng.Float64() * 100}}
		for _, m := range calc.Recalculate(performance.NewHistory(events), prev, now) {
			if m.Score < 0 || m.Score > 100 {
				t.Fatalf("trial %d: score %f out of range", trial, m.Score)
			}
			if m.PeakScore < prev[0].PeakScore {
				t.Fatalf("trial %d: peak decreased from %f to %f", trial, prev[0].PeakScore, m.PeakScore)
			}
		}
	}
}

func TestRecalculate_Idempotent(t *testing.T) {
	events := append(
		answers(model.DomainPeople, model.DifficultyHard, now.Add(-30*24*time.Hour), true, false, true, true),
		answers(model.DomainProcess, model.DifficultyMedium, now.Add(-2*time.Hour), false, false, true)...,
	)
	prev := []model.DomainMastery{
		{DomainID: model.DomainPeople, PeakScore: 90},
		{DomainID: model.DomainBusiness, AccuracyComponent: 50, ConsistencyComponent: 15, DifficultyComponent: 10, PeakScore: 75, LastActivityAt: now.Add(-60 * 24 * time.Hour)},
	}
	calc := NewCalculator()
	h := performance.NewHistory(events)
	first := calc.Recalculate(h, prev, now)
	second := calc.Recalculate(h, prev, now)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Recalculate not idempotent:\n%+v\n%+v", first, second)
	}
	// Feeding the output back in must not compound decay either.
	third := calc.Recalculate(h, first, now)
	if !reflect.DeepEqual(first, third) {
		t.Errorf("Recalculate compounds over its own output:\n%+v\n%+v", first, third)
	}
}

func TestRecalculate_CarriesForwardMissingDomain(t *testing.T) {
	prev := []model.DomainMastery{{
		DomainID:             model.DomainBusiness,
		AccuracyComponent:    60,
		ConsistencyComponent: 20,
		DifficultyComponent:  5,
		PeakScore:            85,
		LastActivityAt:       now.Add(-28 * 24 * time.Hour),
		SampleCount:          12,
		Trend:                model.TrendStable,
		DifficultyTier:       model.DifficultyHard,
	}}
	got := NewCalculator().Recalculate(performance.NewHistory(nil), prev, now)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	// 85 decayed four weeks: 85 * 0.8 = 68
	if !almostEqual(got[0].Score, 68) {
		t.Errorf("Score = %f, want 68", got[0].Score)
	}
	if got[0].SampleCount != 12 || got[0].DifficultyTier != model.DifficultyHard {
		t.Errorf("carried record lost fields: %+v", got[0])
	}
}

func TestRefresh_DecaysIdleRecords(t *testing.T) {
	// Last answer lands an hour before now.
	events := answers(model.DomainPeople, model.DifficultyHard, now.Add(-10*time.Hour), repeat(true, 10)...)
	calc := NewCalculator()
	stored := calc.Recalculate(performance.NewHistory(events), nil, now)
	if !almostEqual(stored[0].Score, 100) {
		t.Fatalf("fresh score = %f, want 100", stored[0].Score)
	}

	later := now.Add(8 * 7 * 24 * time.Hour)
	got := calc.Refresh(stored, later)
	// Roughly eight idle weeks: 100 * (1 - 0.05*8) = 60, above the floor of 50.
	if math.Abs(got[0].Score-60) > 0.1 {
		t.Errorf("Score = %f, want ~60", got[0].Score)
	}
	if got[0].PeakScore != 100 || got[0].SampleCount != 10 {
		t.Errorf("refresh changed components: %+v", got[0])
	}
	if stored[0].Score != 100 {
		t.Error("Refresh mutated its input")
	}

	// Refreshing at the calculation time is a no-op.
	if same := calc.Refresh(stored, now); !reflect.DeepEqual(same, stored) {
		t.Errorf("Refresh at calc time changed records:\n%+v\n%+v", same, stored)
	}
	if calc.Refresh(nil, later) != nil {
		t.Error("Refresh(nil) should be nil")
	}
}

func TestRecalculate_SortedByDomain(t *testing.T) {
	events := append(
		answers(model.DomainProcess, model.DifficultyEasy, now.Add(-time.Hour), true),
		answers(model.DomainBusiness, model.DifficultyEasy, now.Add(-time.Hour), true)...,
	)
	got := NewCalculator().Recalculate(performance.NewHistory(events), nil, now)
	if len(got) != 2 || got[0].DomainID != model.DomainBusiness || got[1].DomainID != model.DomainProcess {
		t.Errorf("order = %+v", got)
	}
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		name    string
		results []bool
		want    float64
	}{
		{"empty", nil, 0},
		{"all correct", repeat(true, 8), 1},
		{"all wrong", repeat(false, 8), 1},
		{"alternating", []bool{true, false, true, false}, 0},
		// mean 0.75, variance 0.1875, 1 - 0.75
		{"three of four", []bool{true, true, true, false}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consistency(answers(model.DomainPeople, model.DifficultyEasy, now, tt.results...))
			if !almostEqual(got, tt.want) {
				t.Errorf("Consistency = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestConsistency_UsesRecentWindow(t *testing.T) {
	results := append([]bool{true, false, true, false, true, false}, repeat(true, ConsistencyWindow)...)
	got := Consistency(answers(model.DomainPeople, model.DifficultyEasy, now, results...))
	if !almostEqual(got, 1) {
		t.Errorf("Consistency = %f, want 1 (older answers outside window)", got)
	}
}
