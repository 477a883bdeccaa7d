package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examprep/internal/model"
)

// SaveProfile upserts the user's profile. Masteries are stored as a JSON blob;
// insights live in their own table and are not part of the row.
func (s *Store) SaveProfile(ctx context.Context, p *model.LearningProfile) error {
	data, err := json.Marshal(p.DomainMasteries)
	if err != nil {
		return fmt.Errorf("marshal masteries: %w", err)
	}
	seq, err := s.seq.current(ctx)
	if err != nil {
		return err
	}

	query, args := builder().Insert("learning_profiles").
		Columns("user_id", "seq", "last_calculated_at", "total_answered", "masteries").
		Values(p.UserID, seq, toUnixNano(p.LastCalculatedAt), p.TotalAnswered, string(data)).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadProfile returns the saved profile or nil when the user has none.
func (s *Store) LoadProfile(ctx context.Context, userID string) (*model.LearningProfile, error) {
	query, args := builder().Select("last_calculated_at", "total_answered", "masteries").
		From(entsql.Table("learning_profiles")).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var (
		calculatedAt int64
		data         string
	)
	p := &model.LearningProfile{UserID: userID}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&calculatedAt, &p.TotalAnswered, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.LastCalculatedAt = fromUnixNano(calculatedAt)
	if err := json.Unmarshal([]byte(data), &p.DomainMasteries); err != nil {
		return nil, fmt.Errorf("unmarshal masteries: %w", err)
	}
	return p, nil
}
