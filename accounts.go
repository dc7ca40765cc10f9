package beancount

import "slices"

// DefaultCurrency is used when no operating_currency option is declared.
const DefaultCurrency = "CNY"

// OpenCurrencies scans open declarations for the account and returns its
// currency constraint list. ok is false when the account is never opened or
// declares no constraint (it then accepts any currency).
func OpenCurrencies(directives []Directive, account string) (currencies []string, ok bool) {
	for _, d := range directives {
		o, isOpen := d.(*Open)
		if !isOpen || o.Account != account {
			continue
		}
		if len(o.Currencies) == 0 {
			return nil, false
		}
		return o.Currencies, true
	}
	return nil, false
}

// OperatingCurrency returns the ledger's declared operating currency, or
// DefaultCurrency when the option is absent.
func OperatingCurrency(directives []Directive) string {
	for _, d := range directives {
		if o, isOpt := d.(*Option); isOpt && o.Name == "operating_currency" {
			return o.Value
		}
	}
	return DefaultCurrency
}

// SelectCurrency picks the currency a corrective posting against account
// should use: preferred if accepted (or the account accepts anything), else
// the ledger's operating currency if accepted, else the first declared
// currency.
func SelectCurrency(directives []Directive, account, preferred string) string {
	currencies, ok := OpenCurrencies(directives, account)
	if !ok || slices.Contains(currencies, preferred) {
		return preferred
	}
	if operating := OperatingCurrency(directives); slices.Contains(currencies, operating) {
		return operating
	}
	return currencies[0]
}
