// Package penalty decides how much an incorrect attempt costs and stages the
// resulting ledger entry inside the caller's unit of work.
package penalty

import "github.com/okian/forfeit/internal/domain/challenge"

// Decision is the pure result of the penalty policy.
type Decision struct {
	// Amount is the positive number of points to deduct, 0 <= Amount <= Penalty.
	Amount int64
	// Capped reports that this decision reaches or has already reached the cap.
	Capped bool
}

// Compute applies the per-attempt penalty against the remaining cap budget.
// accumulated is the absolute penalty already charged to the account for this
// challenge. Negative inputs are clamped to zero so a misconfigured challenge
// can never charge more than its per-attempt penalty.
func Compute(c *challenge.Challenge, accumulated int64) Decision {
	perAttempt := max(c.Penalty, 0)
	budget := max(c.CumulativeCap, 0)
	accumulated = max(accumulated, 0)

	if budget == 0 {
		return Decision{Amount: perAttempt}
	}

	remaining := budget - accumulated
	if remaining <= 0 {
		return Decision{Capped: true}
	}

	amount := min(perAttempt, remaining)
	return Decision{Amount: amount, Capped: amount == remaining}
}
