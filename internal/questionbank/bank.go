// Package questionbank loads practice questions from JSON documents.
package questionbank

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/store"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidBank is wrapped by every validation failure.
var ErrInvalidBank = errors.New("invalid question bank")

// Bank is a parsed question bank document.
type Bank struct {
	Domains   []model.Domain   `json:"domains,omitempty"`
	Questions []model.Question `json:"questions"`
}

type rawQuestion struct {
	model.Question
	Active *bool `json:"active"`
}

type rawBank struct {
	Domains   []model.Domain `json:"domains"`
	Questions []rawQuestion  `json:"questions"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse bank schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://question-bank.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// Parse validates raw against the bank schema and returns the bank.
// Questions without an explicit active flag are active.
func Parse(raw []byte) (*Bank, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrInvalidBank, err)
	}
	schema, err := bankSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBank, err)
	}

	var rb rawBank
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBank, err)
	}

	bank := &Bank{Domains: rb.Domains}
	for _, rq := range rb.Questions {
		q := rq.Question
		q.Active = rq.Active == nil || *rq.Active
		bank.Questions = append(bank.Questions, q)
	}
	if err := bank.check(); err != nil {
		return nil, err
	}
	return bank, nil
}

// Load reads and parses a bank from r.
func Load(r io.Reader) (*Bank, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(raw)
}

// check enforces what the schema cannot express. Domain references are
// checked separately by CheckDomains, since the catalog lives in the store.
func (b *Bank) check() error {
	seenDomain := make(map[string]bool)
	for _, d := range b.Domains {
		if seenDomain[d.ID] {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalidBank, d.ID)
		}
		seenDomain[d.ID] = true
	}

	seen := make(map[string]bool)
	for _, q := range b.Questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question %q", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = true
		if q.CorrectIndex >= len(q.Choices) {
			return fmt.Errorf("%w: question %q correct_index %d out of range for %d choices",
				ErrInvalidBank, q.ID, q.CorrectIndex, len(q.Choices))
		}
	}
	return nil
}

// CheckDomains rejects questions whose domain is unknown. Known domains are
// the stored catalog (domain ID to exam weight, nil when checking offline),
// the default PMP domains and the bank's own.
func (b *Bank) CheckDomains(catalog map[string]float64) error {
	known := make(map[string]bool, len(catalog))
	for id := range catalog {
		known[id] = true
	}
	for _, d := range model.DefaultDomains() {
		known[d.ID] = true
	}
	for _, d := range b.Domains {
		known[d.ID] = true
	}
	for _, q := range b.Questions {
		if !known[q.DomainID] {
			return fmt.Errorf("%w: question %q references unknown domain %q", ErrInvalidBank, q.ID, q.DomainID)
		}
	}
	return nil
}

// Writer is the store surface Import needs.
type Writer interface {
	store.BankWriter
	LoadDomainWeights(ctx context.Context) (map[string]float64, error)
}

// Import checks the bank's domain references against the stored catalog,
// then upserts domains before questions so every question's domain exists.
func Import(ctx context.Context, w Writer, b *Bank) error {
	catalog, err := w.LoadDomainWeights(ctx)
	if err != nil {
		return fmt.Errorf("load domain catalog: %w", err)
	}
	if err := b.CheckDomains(catalog); err != nil {
		return err
	}
	if len(b.Domains) > 0 {
		if err := w.UpsertDomains(ctx, b.Domains); err != nil {
			return fmt.Errorf("import domains: %w", err)
		}
	}
	if err := w.UpsertQuestions(ctx, b.Questions); err != nil {
		return fmt.Errorf("import questions: %w", err)
	}
	return nil
}
