package model

import "time"

// AnswerEvent is a single submitted answer. Events are immutable once recorded.
type AnswerEvent struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	QuestionID  string     `json:"question_id"`
	DomainID    string     `json:"domain_id"`
	Difficulty  Difficulty `json:"difficulty"`
	Methodology string     `json:"methodology"`
	IsCorrect   bool       `json:"is_correct"`
	TimeSpentMs int64      `json:"time_spent_ms"`
	AnsweredAt  time.Time  `json:"answered_at"`
}
