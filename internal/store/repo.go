package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/examprep/internal/model"
)

var (
	// ErrUnavailable marks a store failure that survived retries. Callers
	// should degrade to non-adaptive behavior.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a targeted row does not exist.
	ErrNotFound = errors.New("not found")
)

// Repository is everything the engine needs from persistence.
type Repository interface {
	// LoadHistory returns the user's most recent answers by answer time,
	// oldest first.
	LoadHistory(ctx context.Context, userID string) ([]model.AnswerEvent, error)

	// AppendEvent records an answer. Re-appending an event ID is a no-op.
	AppendEvent(ctx context.Context, ev model.AnswerEvent) error

	// RecentCorrectQuestionIDs returns the distinct questions the user
	// answered correctly at or after since, over the whole event log.
	RecentCorrectQuestionIDs(ctx context.Context, userID string, since time.Time) ([]string, error)

	// CountAnswers returns how many answers the user has ever recorded.
	CountAnswers(ctx context.Context, userID string) (int, error)

	// LoadProfile returns the saved profile, or nil if the user has none.
	LoadProfile(ctx context.Context, userID string) (*model.LearningProfile, error)

	// SaveProfile replaces the user's saved profile.
	SaveProfile(ctx context.Context, p *model.LearningProfile) error

	// LoadDomainWeights returns exam weight by domain ID. Gap ranking reads
	// LoadDomains instead because it also needs display names.
	LoadDomainWeights(ctx context.Context) (map[string]float64, error)

	// LoadDomains returns the domain catalog sorted by ID.
	LoadDomains(ctx context.Context) ([]model.Domain, error)

	// Candidates returns active questions matching filter.
	Candidates(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error)

	// AppendInsights stores generated insights.
	AppendInsights(ctx context.Context, insights []model.Insight) error

	// RecentInsights returns up to limit insights, newest first.
	RecentInsights(ctx context.Context, userID string, limit int) ([]model.Insight, error)

	// MarkInsightRead flags one insight as read.
	MarkInsightRead(ctx context.Context, userID, insightID string) error

	// PruneInsights deletes all but the newest keep insights for the user.
	PruneInsights(ctx context.Context, userID string, keep int) error
}

// BankWriter loads question bank content.
type BankWriter interface {
	UpsertDomains(ctx context.Context, domains []model.Domain) error
	UpsertQuestions(ctx context.Context, questions []model.Question) error
}
