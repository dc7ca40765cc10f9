package beancount

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Balances holds realized account balances keyed by account, then currency.
type Balances map[string]map[string]decimal.Decimal

// Account returns the non-zero currency amounts for one account. The result
// is a copy; the empty map means the account is unknown or fully settled.
func (b Balances) Account(name string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for cur, amt := range b[name] {
		if !amt.IsZero() {
			out[cur] = amt
		}
	}
	return out
}

func (b Balances) add(account, currency string, amount decimal.Decimal) {
	if b[account] == nil {
		b[account] = make(map[string]decimal.Decimal)
	}
	b[account][currency] = b[account][currency].Add(amount)
}

// Realize computes account balances from directives, processing them in
// date order. Directives dated after asOf are discarded when asOf is
// non-nil. Pad directives absorb the gap revealed by a later balance
// assertion into the pad's source account.
func Realize(directives []Directive, asOf *time.Time) (Balances, error) {
	sorted := make([]Directive, 0, len(directives))
	for _, d := range directives {
		if asOf != nil && !d.At().IsZero() && d.At().After(*asOf) {
			continue
		}
		sorted = append(sorted, d)
	}
	slices.SortStableFunc(sorted, func(a, b Directive) int {
		return a.At().Compare(b.At())
	})

	balances := make(Balances)
	pads := make(map[string]*Pad) // account -> active pad

	for _, d := range sorted {
		switch v := d.(type) {
		case *Transaction:
			if err := v.InferPostings(); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", v.Pos.Filename, v.Pos.Line, err)
			}
			for _, p := range v.Postings {
				balances.add(p.Account, p.Currency, *p.Amount)
			}
		case *Pad:
			pads[v.Account] = v
		case *Balance:
			actual := balances[v.Account][v.Currency]
			if actual.Equal(v.Amount) {
				continue
			}
			pad, ok := pads[v.Account]
			if !ok {
				// No pad to absorb the gap. Assertion mismatches are the
				// caller's concern, realization stays tolerant.
				continue
			}
			gap := v.Amount.Sub(actual)
			balances.add(v.Account, v.Currency, gap)
			balances.add(pad.SourceAccount, v.Currency, gap.Neg())
			// A pad is consumed by the first assertion it backfills.
			delete(pads, v.Account)
		}
	}
	return balances, nil
}
