package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examprep/internal/model"
)

var insightColumns = []string{
	"id", "user_id", "type", "title", "message", "priority",
	"domain_id", "action_url", "created_at", "is_read",
}

// AppendInsights stores insights in order under one reserved block of
// sequence numbers, in a single transaction.
func (s *Store) AppendInsights(ctx context.Context, insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	first, err := s.seq.reserve(ctx, len(insights))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insights: %w", err)
	}
	defer tx.Rollback()

	for i, in := range insights {
		query, args := builder().Insert("insights").
			Columns(append([]string{"seq"}, insightColumns...)...).
			Values(first+int64(i), in.ID, in.UserID, string(in.Type), in.Title, in.Message, string(in.Priority),
				in.DomainID, in.ActionURL, toUnixNano(in.CreatedAt), boolToInt(in.IsRead)).
			OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("append insight: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insights: %w", err)
	}
	return nil
}

// RecentInsights returns up to limit insights for the user, newest first.
func (s *Store) RecentInsights(ctx context.Context, userID string, limit int) ([]model.Insight, error) {
	sel := builder().Select(insightColumns...).
		From(entsql.Table("insights")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("seq"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var (
			in            model.Insight
			typ, priority string
			createdAt     int64
			read          int
		)
		if err := rows.Scan(&in.ID, &in.UserID, &typ, &in.Title, &in.Message, &priority,
			&in.DomainID, &in.ActionURL, &createdAt, &read); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Type = model.InsightType(typ)
		in.Priority = model.Priority(priority)
		in.CreatedAt = fromUnixNano(createdAt)
		in.IsRead = read != 0
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return out, nil
}

// MarkInsightRead flags an insight as read. It returns ErrNotFound when the
// user has no insight with that ID.
func (s *Store) MarkInsightRead(ctx context.Context, userID, insightID string) error {
	query, args := builder().Update("insights").
		Set("is_read", 1).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("id", insightID))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark insight read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark insight read: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("insight %s: %w", insightID, ErrNotFound)
	}
	return nil
}

// PruneInsights deletes all but the newest keep insights for the user.
func (s *Store) PruneInsights(ctx context.Context, userID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	// Find the sequence threshold: the newest insight that falls outside keep.
	query, args := builder().Select("seq").
		From(entsql.Table("insights")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("seq")).
		Offset(keep).
		Limit(1).
		Query()

	var threshold int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fewer than keep insights exist
	}
	if err != nil {
		return fmt.Errorf("query insights for prune: %w", err)
	}

	query, args = builder().Delete("insights").
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.LTE("seq", threshold))).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune insights: %w", err)
	}
	return nil
}
