// Package performance keeps a user's bounded answer history and derives
// per-domain statistics from it.
package performance

import (
	"sort"

	"github.com/abhisek/examprep/internal/model"
)

// MaxHistory is the number of most recent answers retained per user.
const MaxHistory = 500

// History is one user's answers in ingestion order, oldest first.
type History struct {
	events []model.AnswerEvent
	limit  int
}

// NewHistory builds a history from already-ordered events, keeping only the newest MaxHistory.
func NewHistory(events []model.AnswerEvent) *History {
	h := &History{limit: MaxHistory}
	for _, ev := range events {
		h.Record(ev)
	}
	return h
}

// Record appends an answer, evicting the oldest once the window is full.
func (h *History) Record(ev model.AnswerEvent) {
	limit := h.limit
	if limit <= 0 {
		limit = MaxHistory
	}
	h.events = append(h.events, ev)
	if len(h.events) > limit {
		h.events = h.events[len(h.events)-limit:]
	}
}

// Len returns the number of retained answers.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.events)
}

// Events returns a copy of the retained answers, oldest first.
func (h *History) Events() []model.AnswerEvent {
	if h == nil {
		return nil
	}
	out := make([]model.AnswerEvent, len(h.events))
	copy(out, h.events)
	return out
}

// ForDomain returns the retained answers for one domain, oldest first.
func (h *History) ForDomain(domainID string) []model.AnswerEvent {
	if h == nil {
		return nil
	}
	var out []model.AnswerEvent
	for _, ev := range h.events {
		if ev.DomainID == domainID {
			out = append(out, ev)
		}
	}
	return out
}

// Domains returns the distinct domain IDs present, sorted.
func (h *History) Domains() []string {
	if h == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range h.events {
		if !seen[ev.DomainID] {
			seen[ev.DomainID] = true
			ids = append(ids, ev.DomainID)
		}
	}
	sort.Strings(ids)
	return ids
}
