package model

// Domain is an exam knowledge area with its official weight (percentage of the exam).
type Domain struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Default PMP domain identifiers.
const (
	DomainPeople   = "people"
	DomainProcess  = "process"
	DomainBusiness = "business-environment"
)

// DefaultDomains returns the PMP exam domains with their published weights.
func DefaultDomains() []Domain {
	return []Domain{
		{ID: DomainPeople, Name: "People", Weight: 42},
		{ID: DomainProcess, Name: "Process", Weight: 50},
		{ID: DomainBusiness, Name: "Business Environment", Weight: 8},
	}
}

// DomainName resolves a display name, falling back to the ID.
func DomainName(domains []Domain, id string) string {
	for _, d := range domains {
		if d.ID == id {
			return d.Name
		}
	}
	return id
}
