package beancount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMatchesTransaction(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			"identical modulo whitespace and posting order",
			`2025-01-20 * "Groceries" "weekly shop"
    Expenses:Food 200.00 CNY
    Assets:Bank -200.00 CNY
`,
			`2025-01-20 * "Groceries" "synced copy"
    Assets:Bank     -200.00   CNY
    Expenses:Food   200.00    CNY
`,
			true,
		},
		{
			"elided posting matches explicit amount",
			`2025-01-20 * "Groceries" "weekly shop"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			`2025-01-20 * "Groceries" "weekly shop"
    Expenses:Food 200.00 CNY
    Assets:Bank -200.00 CNY
`,
			true,
		},
		{
			"different date",
			`2025-01-20 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			`2025-01-21 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			false,
		},
		{
			"different payee",
			`2025-01-20 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			`2025-01-20 * "Market" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			false,
		},
		{
			"both payees absent",
			`2025-01-20 * "only narration"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			`2025-01-20 * "different narration"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			true,
		},
		{
			"different amount",
			`2025-01-20 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`,
			`2025-01-20 * "Groceries" "x"
    Expenses:Food 200.01 CNY
    Assets:Bank
`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustParse(t, tt.a)[0]
			b := mustParse(t, tt.b)[0]
			if got := Matches(a, b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesPadAndBalance(t *testing.T) {
	padA := &Pad{Date: day(2025, 1, 1), Account: "Assets:Bank", SourceAccount: "Equity:Opening-Balances"}
	padB := &Pad{Date: day(2025, 1, 1), Account: "Assets:Bank", SourceAccount: "Equity:Opening-Balances"}
	padC := &Pad{Date: day(2025, 1, 1), Account: "Assets:Bank", SourceAccount: "Expenses:Misc"}

	if !Matches(padA, padB) {
		t.Error("identical pads should match")
	}
	if Matches(padA, padC) {
		t.Error("pads with different source accounts should not match")
	}

	balA := &Balance{Date: day(2025, 1, 2), Account: "Assets:Bank", Amount: decimal.NewFromFloat(1000.0), Currency: "CNY"}
	balB := &Balance{Date: day(2025, 1, 2), Account: "Assets:Bank", Amount: decimal.NewFromFloat(1000.0), Currency: "CNY"}
	balC := &Balance{Date: day(2025, 1, 2), Account: "Assets:Bank", Amount: decimal.NewFromFloat(1000.0), Currency: "USD"}

	if !Matches(balA, balB) {
		t.Error("identical balances should match")
	}
	if Matches(balA, balC) {
		t.Error("balances in different currencies should not match")
	}
	if Matches(padA, balA) {
		t.Error("pad should not match balance")
	}
}

func TestMatchAllConsumesEachOnce(t *testing.T) {
	entry := `2025-01-20 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`
	platform := append(mustParse(t, entry), mustParse(t, entry)...)
	external := mustParse(t, entry)

	pairs := MatchAll(platform, external)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].A != platform[0] {
		t.Error("expected the first platform entry to win the match")
	}
}

func TestNormalizeDoesNotMutate(t *testing.T) {
	entry := mustParse(t, `2025-01-20 * "Groceries" "x"
    Expenses:Food 200.00 CNY
    Assets:Bank
`)[0].(*Transaction)

	_ = Normalize(entry)
	if entry.Postings[1].Amount != nil {
		t.Error("Normalize mutated the original directive")
	}
}
