package store

import (
	"context"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examprep/internal/model"
)

var questionColumns = []string{
	"id", "domain_id", "difficulty", "methodology", "text",
	"choices", "correct_index", "explanation", "active",
}

// UpsertDomains inserts or replaces catalog domains.
func (s *Store) UpsertDomains(ctx context.Context, domains []model.Domain) error {
	if len(domains) == 0 {
		return nil
	}
	ins := builder().Insert("domains").Columns("id", "name", "weight")
	for _, d := range domains {
		ins.Values(d.ID, d.Name, d.Weight)
	}
	query, args := ins.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert domains: %w", err)
	}
	return nil
}

// LoadDomains returns the catalog sorted by ID.
func (s *Store) LoadDomains(ctx context.Context) ([]model.Domain, error) {
	query, args := builder().Select("id", "name", "weight").
		From(entsql.Table("domains")).
		OrderBy("id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var out []model.Domain
	for rows.Next() {
		var d model.Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.Weight); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

// LoadDomainWeights returns exam weight by domain ID.
func (s *Store) LoadDomainWeights(ctx context.Context) (map[string]float64, error) {
	domains, err := s.LoadDomains(ctx)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]float64, len(domains))
	for _, d := range domains {
		weights[d.ID] = d.Weight
	}
	return weights, nil
}

// UpsertQuestions inserts or replaces questions in one transaction.
func (s *Store) UpsertQuestions(ctx context.Context, questions []model.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices for %s: %w", q.ID, err)
		}
		query, args := builder().Insert("questions").
			Columns(questionColumns...).
			Values(q.ID, q.DomainID, string(q.Difficulty), q.Methodology, q.Text,
				string(choices), q.CorrectIndex, q.Explanation, boolToInt(q.Active)).
			OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// Candidates returns active questions matching filter, ordered by ID.
func (s *Store) Candidates(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	sel := builder().Select(questionColumns...).
		From(entsql.Table("questions")).
		Where(entsql.EQ("active", 1)).
		OrderBy("id")
	if filter.DomainID != "" {
		sel.Where(entsql.EQ("domain_id", filter.DomainID))
	}
	if tiers := tiersIn(filter); len(tiers) > 0 {
		sel.Where(entsql.In("difficulty", tiers...))
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var (
			q          model.Question
			difficulty string
			choices    string
			active     int
		)
		if err := rows.Scan(&q.ID, &q.DomainID, &difficulty, &q.Methodology, &q.Text,
			&choices, &q.CorrectIndex, &q.Explanation, &active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Difficulty = model.Difficulty(difficulty)
		q.Active = active != 0
		if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// tiersIn lists the tiers a filter admits, or nil when it admits all of them.
func tiersIn(filter model.QuestionFilter) []any {
	if !filter.DifficultyMin.Valid() && !filter.DifficultyMax.Valid() {
		return nil
	}
	var out []any
	for _, d := range model.AllDifficulties() {
		if filter.Matches(model.Question{DomainID: filter.DomainID, Difficulty: d}) {
			out = append(out, string(d))
		}
	}
	return out
}
