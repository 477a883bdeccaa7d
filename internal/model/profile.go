package model

import "time"

// LearningProfile is the per-user aggregate root persisted between recalculations.
type LearningProfile struct {
	UserID           string          `json:"user_id"`
	LastCalculatedAt time.Time       `json:"last_calculated_at"`
	TotalAnswered    int             `json:"total_answered"`
	DomainMasteries  []DomainMastery `json:"domain_masteries"`
	RecentInsights   []Insight       `json:"recent_insights,omitempty"`
}

// Mastery returns the record for domainID, or nil if the domain was never attempted.
func (p *LearningProfile) Mastery(domainID string) *DomainMastery {
	if p == nil {
		return nil
	}
	for i := range p.DomainMasteries {
		if p.DomainMasteries[i].DomainID == domainID {
			return &p.DomainMasteries[i]
		}
	}
	return nil
}
