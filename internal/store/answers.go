package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/performance"
)

var answerColumns = []string{
	"id", "user_id", "question_id", "domain_id", "difficulty",
	"methodology", "is_correct", "time_spent_ms", "answered_at",
}

// AppendEvent stores an answer under the next global sequence number.
func (s *Store) AppendEvent(ctx context.Context, ev model.AnswerEvent) error {
	seq, err := s.seq.next(ctx)
	if err != nil {
		return err
	}

	query, args := builder().Insert("answer_events").
		Columns(append([]string{"seq"}, answerColumns...)...).
		Values(seq, ev.ID, ev.UserID, ev.QuestionID, ev.DomainID, string(ev.Difficulty),
			ev.Methodology, boolToInt(ev.IsCorrect), ev.TimeSpentMs, toUnixNano(ev.AnsweredAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append answer event: %w", err)
	}
	return nil
}

// LoadHistory returns the newest performance.MaxHistory answers by answer
// time, oldest first. Events sharing a timestamp keep ingestion order.
func (s *Store) LoadHistory(ctx context.Context, userID string) ([]model.AnswerEvent, error) {
	query, args := builder().Select(answerColumns...).
		From(entsql.Table("answer_events")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("answered_at"), entsql.Desc("seq")).
		Limit(performance.MaxHistory).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query answer events: %w", err)
	}
	defer rows.Close()

	var events []model.AnswerEvent
	for rows.Next() {
		var (
			ev         model.AnswerEvent
			difficulty string
			correct    int
			answeredAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.QuestionID, &ev.DomainID, &difficulty,
			&ev.Methodology, &correct, &ev.TimeSpentMs, &answeredAt); err != nil {
			return nil, fmt.Errorf("scan answer event: %w", err)
		}
		ev.Difficulty = model.Difficulty(difficulty)
		ev.IsCorrect = correct != 0
		ev.AnsweredAt = fromUnixNano(answeredAt)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer events: %w", err)
	}

	// Newest first from the query; callers want chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// RecentCorrectQuestionIDs returns the distinct questions the user answered
// correctly at or after since. It reads the full event log, not only the
// window LoadHistory returns.
func (s *Store) RecentCorrectQuestionIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	query, args := builder().Select("question_id").Distinct().
		From(entsql.Table("answer_events")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("is_correct", 1),
			entsql.GTE("answered_at", toUnixNano(since)),
		)).
		OrderBy("question_id").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent correct: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent correct: %w", err)
	}
	return ids, nil
}

// CountAnswers returns how many answers the user has recorded in total.
func (s *Store) CountAnswers(ctx context.Context, userID string) (int, error) {
	query, args := builder().Select(entsql.Count("*")).
		From(entsql.Table("answer_events")).
		Where(entsql.EQ("user_id", userID)).
		Query()
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count answer events: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}
