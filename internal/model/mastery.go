package model

import "time"

// Trend is the direction a domain's performance is moving.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// DomainStats are aggregates over the retained history for one domain.
type DomainStats struct {
	DomainID           string  `json:"domain_id"`
	AccuracyRate       float64 `json:"accuracy_rate"` // 0.0-1.0
	AvgTimeMs          float64 `json:"avg_time_ms"`
	SampleCount        int     `json:"sample_count"`
	CorrectCount       int     `json:"correct_count"`
	DifficultyMixScore float64 `json:"difficulty_mix_score"` // 0.0-1.0
}

// DomainMastery is the user's mastery of a single domain.
type DomainMastery struct {
	DomainID             string     `json:"domain_id"`
	Score                float64    `json:"score"`
	Trend                Trend      `json:"trend"`
	AccuracyComponent    float64    `json:"accuracy_component"`
	ConsistencyComponent float64    `json:"consistency_component"`
	DifficultyComponent  float64    `json:"difficulty_component"`
	PeakScore            float64    `json:"peak_score"`
	LastActivityAt       time.Time  `json:"last_activity_at"`
	SampleCount          int        `json:"sample_count"`
	LowConfidence        bool       `json:"low_confidence"`
	DifficultyTier       Difficulty `json:"difficulty_tier"`
}
