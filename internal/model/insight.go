package model

import "time"

// InsightType categorizes a generated insight.
type InsightType string

const (
	InsightImprovement    InsightType = "improvement"
	InsightAlert          InsightType = "alert"
	InsightMilestone      InsightType = "milestone"
	InsightRecommendation InsightType = "recommendation"
	InsightPattern        InsightType = "pattern"
)

// Priority of an insight for display ordering.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Insight is a user-facing message derived from performance and mastery. Append-only.
type Insight struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      InsightType `json:"type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Priority  Priority    `json:"priority"`
	DomainID  string      `json:"domain_id,omitempty"`
	ActionURL string      `json:"action_url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	IsRead    bool        `json:"is_read"`
}
