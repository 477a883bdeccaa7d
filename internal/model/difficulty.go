package model

import (
	"fmt"
	"strings"
)

// Difficulty is a question difficulty tier. Tiers are ordered EASY < MEDIUM < HARD.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// AllDifficulties returns the tiers in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// Rank returns the 0-based position of d in the tier ordering, or -1 if d is not a known tier.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return -1
}

// Valid reports whether d is one of the three tiers.
func (d Difficulty) Valid() bool {
	return d.Rank() >= 0
}

// Step moves d by delta tiers, clamped to EASY..HARD.
func (d Difficulty) Step(delta int) Difficulty {
	r := d.Rank()
	if r < 0 {
		r = DifficultyMedium.Rank()
	}
	r += delta
	tiers := AllDifficulties()
	if r < 0 {
		r = 0
	}
	if r >= len(tiers) {
		r = len(tiers) - 1
	}
	return tiers[r]
}

// Clamp restricts d to the inclusive range [lo, hi].
func (d Difficulty) Clamp(lo, hi Difficulty) Difficulty {
	if lo.Valid() && d.Rank() < lo.Rank() {
		return lo
	}
	if hi.Valid() && d.Rank() > hi.Rank() {
		return hi
	}
	return d
}

// ParseDifficulty parses a tier name case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}
