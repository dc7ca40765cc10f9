package beancount

import (
	"slices"
	"strings"
)

// Normalize strips formatting noise from a directive so two entries written
// with different whitespace or posting order compare equal: elided posting
// amounts are inferred, postings are sorted canonically, and position and
// comment metadata are dropped. The input is not modified.
func Normalize(d Directive) Directive {
	t, ok := d.(*Transaction)
	if !ok {
		return d
	}
	n := &Transaction{
		Date:      t.Date,
		Flag:      t.Flag,
		Payee:     t.Payee,
		Narration: t.Narration,
		Postings:  slices.Clone(t.Postings),
	}
	_ = n.InferPostings() // unbalanced entries still compare on what they have
	for i := range n.Postings {
		n.Postings[i].Comment = ""
	}
	slices.SortFunc(n.Postings, comparePostings)
	return n
}

func comparePostings(a, b Posting) int {
	if c := strings.Compare(a.Account, b.Account); c != 0 {
		return c
	}
	if c := strings.Compare(a.Currency, b.Currency); c != 0 {
		return c
	}
	switch {
	case a.Amount == nil && b.Amount == nil:
		return 0
	case a.Amount == nil:
		return -1
	case b.Amount == nil:
		return 1
	}
	return a.Amount.Cmp(*b.Amount)
}

// Matches reports structural equality between two directives.
// Transactions match on date, payee (or both absent) and the posting
// multiset of (account, amount, currency), ignoring posting order and
// narration. Pads match on date, account and source account. Balances
// match on date, account, amount and currency.
func Matches(a, b Directive) bool {
	switch av := Normalize(a).(type) {
	case *Transaction:
		bv, ok := Normalize(b).(*Transaction)
		if !ok {
			return false
		}
		if !av.Date.Equal(bv.Date) || av.Payee != bv.Payee {
			return false
		}
		if len(av.Postings) != len(bv.Postings) {
			return false
		}
		for i := range av.Postings {
			if !postingEqual(av.Postings[i], bv.Postings[i]) {
				return false
			}
		}
		return true
	case *Pad:
		bv, ok := b.(*Pad)
		return ok && av.Date.Equal(bv.Date) && av.Account == bv.Account && av.SourceAccount == bv.SourceAccount
	case *Balance:
		bv, ok := b.(*Balance)
		return ok && av.Date.Equal(bv.Date) && av.Account == bv.Account &&
			av.Amount.Equal(bv.Amount) && av.Currency == bv.Currency
	}
	return false
}

func postingEqual(a, b Posting) bool {
	if a.Account != b.Account || a.Currency != b.Currency {
		return false
	}
	if (a.Amount == nil) != (b.Amount == nil) {
		return false
	}
	return a.Amount == nil || a.Amount.Equal(*b.Amount)
}

// MatchPair pairs a platform-side directive with the external directive it
// duplicates.
type MatchPair struct {
	A, B Directive
}

// MatchAll greedily pairs each directive in a with the first unconsumed
// match in b. Every element of b is consumed at most once.
func MatchAll(a, b []Directive) []MatchPair {
	used := make([]bool, len(b))
	var pairs []MatchPair
	for _, da := range a {
		for i, db := range b {
			if used[i] || !Matches(da, db) {
				continue
			}
			used[i] = true
			pairs = append(pairs, MatchPair{A: da, B: db})
			break
		}
	}
	return pairs
}
