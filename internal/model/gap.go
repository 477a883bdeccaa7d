package model

import "time"

// GapType classifies why a domain is below the mastery threshold.
type GapType string

const (
	GapNeverLearned GapType = "never_learned"
	GapForgotten    GapType = "forgotten"
	GapStruggling   GapType = "struggling"
)

// GapLevel buckets a gap by how far below threshold the score is.
type GapLevel string

const (
	GapCritical GapLevel = "critical"
	GapModerate GapLevel = "moderate"
	GapMinor    GapLevel = "minor"
)

// KnowledgeGap is a domain below the mastery threshold. Gaps are recomputed on demand.
type KnowledgeGap struct {
	DomainID       string    `json:"domain_id"`
	DomainName     string    `json:"domain_name"`
	Score          float64   `json:"score"`
	Severity       float64   `json:"severity"`
	ExamWeight     float64   `json:"exam_weight"`
	PriorityScore  float64   `json:"priority_score"`
	GapType        GapType   `json:"gap_type"`
	Level          GapLevel  `json:"level"`
	Rank           int       `json:"rank"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Recommendation string    `json:"recommendation"`
}
