package models

import "time"

// OrchestrationResult aggregates all advisor outcomes for one round.
// Outcomes preserve advisor registration order.
type OrchestrationResult struct {
	RoundID   string           `json:"round_id"`
	Symbol    string           `json:"symbol"`
	Timestamp time.Time        `json:"timestamp"`
	Context   MarketContext    `json:"context"`
	Outcomes  []AdvisorOutcome `json:"outcomes"`
}

// SucceededCount returns the number of advisors that replied.
func (r *OrchestrationResult) SucceededCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusOK {
			n++
		}
	}
	return n
}
