package model

import "testing"

func TestDifficultyStep(t *testing.T) {
	tests := []struct {
		from  Difficulty
		delta int
		want  Difficulty
	}{
		{DifficultyEasy, -1, DifficultyEasy},
		{DifficultyEasy, 1, DifficultyMedium},
		{DifficultyMedium, 1, DifficultyHard},
		{DifficultyHard, 1, DifficultyHard},
		{DifficultyHard, -2, DifficultyEasy},
		{Difficulty("bogus"), 0, DifficultyMedium},
	}
	for _, tt := range tests {
		if got := tt.from.Step(tt.delta); got != tt.want {
			t.Errorf("%s.Step(%d) = %s, want %s", tt.from, tt.delta, got, tt.want)
		}
	}
}

func TestDifficultyClamp(t *testing.T) {
	if got := DifficultyHard.Clamp(DifficultyEasy, DifficultyMedium); got != DifficultyMedium {
		t.Errorf("Clamp = %s, want MEDIUM", got)
	}
	if got := DifficultyEasy.Clamp(DifficultyMedium, ""); got != DifficultyMedium {
		t.Errorf("Clamp = %s, want MEDIUM", got)
	}
	if got := DifficultyMedium.Clamp("", ""); got != DifficultyMedium {
		t.Errorf("Clamp = %s, want MEDIUM", got)
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" hard ")
	if err != nil || d != DifficultyHard {
		t.Fatalf("ParseDifficulty = %s, %v", d, err)
	}
	if _, err := ParseDifficulty("extreme"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestQuestionFilterMatches(t *testing.T) {
	q := Question{ID: "q1", DomainID: DomainPeople, Difficulty: DifficultyMedium}
	tests := []struct {
		name   string
		filter QuestionFilter
		want   bool
	}{
		{"empty", QuestionFilter{}, true},
		{"domain match", QuestionFilter{DomainID: DomainPeople}, true},
		{"domain mismatch", QuestionFilter{DomainID: DomainProcess}, false},
		{"in range", QuestionFilter{DifficultyMin: DifficultyEasy, DifficultyMax: DifficultyMedium}, true},
		{"below min", QuestionFilter{DifficultyMin: DifficultyHard}, false},
		{"above max", QuestionFilter{DifficultyMax: DifficultyEasy}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(q); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileMastery(t *testing.T) {
	p := &LearningProfile{DomainMasteries: []DomainMastery{{DomainID: DomainPeople, Score: 80}}}
	if m := p.Mastery(DomainPeople); m == nil || m.Score != 80 {
		t.Fatalf("Mastery(people) = %+v", m)
	}
	if m := p.Mastery(DomainProcess); m != nil {
		t.Errorf("Mastery(process) = %+v, want nil", m)
	}
	var nilProfile *LearningProfile
	if nilProfile.Mastery(DomainPeople) != nil {
		t.Error("nil profile should return nil")
	}
}
