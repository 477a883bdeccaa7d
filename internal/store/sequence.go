package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequence is the single counter that orders answer events and insights
// across users. A saved profile stores the value that was current when it
// was computed.
//
// The increment is raw SQL: the builder has no UPDATE ... RETURNING with an
// expression. The mutex keeps blocks contiguous within the process.
type sequence struct {
	mu sync.Mutex
	db *sql.DB
}

func openSequence(db *sql.DB) (*sequence, error) {
	if _, err := db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequence{db: db}, nil
}

// reserve claims n consecutive numbers and returns the first of them.
func (sq *sequence) reserve(ctx context.Context, n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("reserve %d sequence numbers", n)
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()

	var first int64
	err := sq.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + ? WHERE id = 1 RETURNING next_val - ?`, n, n,
	).Scan(&first)
	if err != nil {
		return 0, fmt.Errorf("reserve sequence: %w", err)
	}
	return first, nil
}

func (sq *sequence) next(ctx context.Context) (int64, error) {
	return sq.reserve(ctx, 1)
}

// current returns the last number handed out, or 0 if none.
func (sq *sequence) current(ctx context.Context) (int64, error) {
	query, args := builder().Select("next_val").
		From(entsql.Table("global_sequence")).
		Where(entsql.EQ("id", 1)).
		Query()
	var next int64
	if err := sq.db.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("current sequence: %w", err)
	}
	return next - 1, nil
}
