package model

// Question is a practice question from the bank.
type Question struct {
	ID           string     `json:"id"`
	DomainID     string     `json:"domain_id"`
	Difficulty   Difficulty `json:"difficulty"`
	Methodology  string     `json:"methodology"`
	Text         string     `json:"text"`
	Choices      []string   `json:"choices"`
	CorrectIndex int        `json:"correct_index"`
	Explanation  string     `json:"explanation,omitempty"`
	Active       bool       `json:"active"`
}

// QuestionFilter narrows the candidate pool loaded from the bank.
type QuestionFilter struct {
	DomainID      string
	DifficultyMin Difficulty
	DifficultyMax Difficulty
}

// Matches reports whether q passes the filter.
func (f QuestionFilter) Matches(q Question) bool {
	if f.DomainID != "" && q.DomainID != f.DomainID {
		return false
	}
	if f.DifficultyMin.Valid() && q.Difficulty.Rank() < f.DifficultyMin.Rank() {
		return false
	}
	if f.DifficultyMax.Valid() && q.Difficulty.Rank() > f.DifficultyMax.Rank() {
		return false
	}
	return true
}
