package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidateAllocation(t *testing.T) {
	cases := []struct {
		name     string
		actual   string
		expected string
		lines    []AllocationLine
		ok       bool
	}{
		{
			name:   "zero difference no lines",
			actual: "1000.00", expected: "1000.00",
			ok: true,
		},
		{
			name:   "zero difference rejects lines",
			actual: "1000.00", expected: "1000.00",
			lines: []AllocationLine{{Account: "Expenses:Food", Amount: amt("-1.00")}},
		},
		{
			name:   "difference requires lines",
			actual: "1200.00", expected: "1000.00",
		},
		{
			name:   "manual lines sum to difference",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{{Account: "Expenses:Food", Amount: amt("-200.00")}},
			ok:    true,
		},
		{
			name:   "manual lines split difference",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{
				{Account: "Expenses:Food", Amount: amt("-120.00")},
				{Account: "Expenses:Transport", Amount: amt("-80.00")},
			},
			ok: true,
		},
		{
			name:   "manual sum within tolerance",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{{Account: "Expenses:Food", Amount: amt("-199.99")}},
			ok:    true,
		},
		{
			name:   "manual sum off by more than tolerance",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{{Account: "Expenses:Food", Amount: amt("-199.98")}},
		},
		{
			name:   "auto line alone",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{{Account: "Equity:OpenBalance"}},
			ok:    true,
		},
		{
			name:   "auto plus partial manual",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{
				{Account: "Expenses:Food", Amount: amt("-150.00")},
				{Account: "Equity:OpenBalance"},
			},
			ok: true,
		},
		{
			name:   "manual exceeds difference with auto present",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{
				{Account: "Expenses:Food", Amount: amt("-250.00")},
				{Account: "Equity:OpenBalance"},
			},
		},
		{
			name:   "two auto lines",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{
				{Account: "Equity:OpenBalance"},
				{Account: "Equity:Adjustments"},
			},
		},
		{
			name:   "line without account",
			actual: "1200.00", expected: "1000.00",
			lines: []AllocationLine{{Amount: amt("-200.00")}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateAllocation(
				decimal.RequireFromString(c.actual),
				decimal.RequireFromString(c.expected),
				c.lines)
			if c.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrAllocationMismatch)
			}
		})
	}
}

func TestValidateAllocationPerturbation(t *testing.T) {
	actual := decimal.RequireFromString("1523.45")
	expected := decimal.RequireFromString("1400.00")
	lines := []AllocationLine{
		{Account: "Expenses:Food", Amount: amt("-100.00")},
		{Account: "Expenses:Transport", Amount: amt("-23.45")},
	}
	require.NoError(t, ValidateAllocation(actual, expected, lines))

	for i := range lines {
		perturbed := make([]AllocationLine, len(lines))
		copy(perturbed, lines)
		off := lines[i].Amount.Add(decimal.RequireFromString("0.02"))
		perturbed[i] = AllocationLine{Account: lines[i].Account, Amount: &off}
		require.ErrorIs(t, ValidateAllocation(actual, expected, perturbed), ErrAllocationMismatch)
	}
}
