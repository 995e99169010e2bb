// Package alert decides when a customer's visit count warrants a notice.
package alert

import "github.com/spec-kit/customer-ledger/internal/domain"

// DefaultVisits is the count that must be exceeded before alerting.
const DefaultVisits = 3

// Threshold is a stateless visit count evaluator.
type Threshold struct {
	Visits int
}

// NewThreshold falls back to DefaultVisits for non-positive input.
func NewThreshold(visits int) Threshold {
	if visits < 1 {
		visits = DefaultVisits
	}
	return Threshold{Visits: visits}
}

// ShouldAlert is true iff the record has more visits than the threshold.
func (t Threshold) ShouldAlert(c *domain.Customer) bool {
	return c != nil && c.VisitCount > t.Visits
}
