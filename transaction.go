package beancount

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNeedAtLeastTwoPostings        = errors.New("need at least two postings")
	ErrNoEmptyPostingForExtraBalance = errors.New("unable to balance transaction: no elided posting to place extra balance")
	ErrMoreThanOneEmptyPostingInTx   = errors.New("unable to balance transaction: more than one posting elided")
	ErrMultiCurrencyResidual         = errors.New("unable to balance transaction: residual spans multiple currencies")
)

// weight returns the value a posting contributes to the transaction balance
// and the currency it contributes it in. A posting with an @@ total cost
// weighs its converted amount (carrying the sign of the posting); one with
// an @ price weighs amount times price.
func (p *Posting) weight() (decimal.Decimal, string) {
	if p.Amount == nil {
		return decimal.Zero, ""
	}
	if p.Converted != nil {
		conv := *p.Converted
		if p.Amount.Sign() < 0 {
			conv = conv.Neg()
		}
		return conv, p.ConvertedCurrency
	}
	if p.Price != nil {
		return p.Amount.Mul(*p.Price), p.PriceCurrency
	}
	return *p.Amount, p.Currency
}

// InferPostings fills in the amount of an elided posting so the transaction
// balances to zero in every currency. Returns nil if the transaction is
// balanced, otherwise an error.
func (t *Transaction) InferPostings() error {
	if len(t.Postings) < 2 {
		return ErrNeedAtLeastTwoPostings
	}

	residuals := make(map[string]decimal.Decimal)
	var numEmpty int
	var emptyIdx int

	for i := range t.Postings {
		p := &t.Postings[i]
		if p.Amount == nil {
			numEmpty++
			emptyIdx = i
			continue
		}
		w, cur := p.weight()
		residuals[cur] = residuals[cur].Add(w)
	}

	// drop zero residuals
	for cur, amt := range residuals {
		if amt.IsZero() {
			delete(residuals, cur)
		}
	}

	if len(residuals) == 0 {
		// Explicit postings already balance; elided ones carry nothing.
		for i := range t.Postings {
			if t.Postings[i].Amount == nil {
				zero := decimal.Zero
				t.Postings[i].Amount = &zero
			}
		}
		return nil
	}

	switch numEmpty {
	case 0:
		return ErrNoEmptyPostingForExtraBalance
	case 1:
		if len(residuals) > 1 {
			return ErrMultiCurrencyResidual
		}
		// The single residual obviously belongs to the elided posting.
		for cur, amt := range residuals {
			neg := amt.Neg()
			t.Postings[emptyIdx].Amount = &neg
			t.Postings[emptyIdx].Currency = cur
		}
		return nil
	default:
		return ErrMoreThanOneEmptyPostingInTx
	}
}
