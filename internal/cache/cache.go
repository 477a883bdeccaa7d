// Package cache holds computed knowledge gaps between recalculations.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/examprep/internal/model"
)

// GapCache stores a user's ranked gaps. The engine passes a key scoped to
// the user and the current day rather than the bare user ID. A miss is
// (nil, false, nil).
type GapCache interface {
	Get(ctx context.Context, userID string) ([]model.KnowledgeGap, bool, error)
	Set(ctx context.Context, userID string, gaps []model.KnowledgeGap) error
	Invalidate(ctx context.Context, userID string) error
	Close() error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]model.KnowledgeGap, bool, error) {
	return nil, false, nil
}

func (Nop) Set(context.Context, string, []model.KnowledgeGap) error {
	return nil
}

func (Nop) Invalidate(context.Context, string) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

// Memory is an in-process GapCache with a TTL.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	gaps    []model.KnowledgeGap
	expires time.Time
}

// NewMemory creates a Memory cache. A non-positive ttl never expires entries.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, userID string) ([]model.KnowledgeGap, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, userID)
		return nil, false, nil
	}
	return cloneGaps(e.gaps), true, nil
}

func (m *Memory) Set(_ context.Context, userID string, gaps []model.KnowledgeGap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{gaps: cloneGaps(gaps)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[userID] = e
	return nil
}

func (m *Memory) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneGaps(gaps []model.KnowledgeGap) []model.KnowledgeGap {
	if gaps == nil {
		return nil
	}
	out := make([]model.KnowledgeGap, len(gaps))
	copy(out, gaps)
	return out
}
