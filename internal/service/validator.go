package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the shared rounding window: the allocation sum may be off
// by at most this much, and an auto remainder of exactly this magnitude is
// emitted as a transaction instead of a pad.
var Tolerance = decimal.New(1, -2) // 0.01

// AllocationLine is one user-proposed split of the balance difference. A
// nil Amount marks the auto line, whose amount is solved for.
type AllocationLine struct {
	Account string
	Amount  *decimal.Decimal
}

// Auto reports whether the line's amount is to be solved for.
func (l AllocationLine) Auto() bool { return l.Amount == nil }

// ValidateAllocation checks a proposed allocation against the balance
// difference before anything is persisted. The signed sum of explicit
// amounts must equal expected-actual within Tolerance; with an auto line
// present it must instead not exceed |expected-actual|, so the remainder
// keeps its sign.
func ValidateAllocation(actual, expected decimal.Decimal, lines []AllocationLine) error {
	difference := actual.Sub(expected)
	if difference.IsZero() {
		if len(lines) > 0 {
			return fmt.Errorf("%w: balance matches, no allocation lines expected", ErrAllocationMismatch)
		}
		return nil
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: difference is %s, at least one allocation line required",
			ErrAllocationMismatch, difference.StringFixed(2))
	}

	autoCount := 0
	sum := decimal.Zero
	for _, line := range lines {
		if line.Account == "" {
			return fmt.Errorf("%w: allocation line without account", ErrAllocationMismatch)
		}
		if line.Auto() {
			autoCount++
			continue
		}
		sum = sum.Add(*line.Amount)
	}
	if autoCount > 1 {
		return fmt.Errorf("%w: more than one auto line", ErrAllocationMismatch)
	}

	target := expected.Sub(actual)
	if autoCount == 0 {
		if sum.Sub(target).Abs().GreaterThan(Tolerance) {
			return fmt.Errorf("%w: explicit amounts sum to %s, want %s",
				ErrAllocationMismatch, sum.StringFixed(2), target.StringFixed(2))
		}
		return nil
	}
	if sum.Abs().GreaterThan(target.Abs()) {
		return fmt.Errorf("%w: explicit amounts %s exceed the difference %s",
			ErrAllocationMismatch, sum.StringFixed(2), target.StringFixed(2))
	}
	return nil
}
