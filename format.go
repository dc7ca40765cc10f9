package beancount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the textual date format of every emitted directive.
const DateFormat = "2006-01-02"

// PlatformPayee marks corrective entries authored by the platform.
const PlatformPayee = "Beancount-Trans"

// PlatformNarration is the narration on every corrective transaction.
const PlatformNarration = "对账调整"

// Conversion is the @@ total-cost annotation of a cross-currency posting.
type Conversion struct {
	Amount   decimal.Decimal
	Currency string
}

// FormatBalance renders a balance assertion directive.
func FormatBalance(when time.Time, account string, amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s balance %s %s %s", when.Format(DateFormat), account, amount.StringFixed(2), currency)
}

// FormatPad renders a pad directive from account against padAccount.
func FormatPad(when time.Time, account, padAccount string) string {
	return fmt.Sprintf("%s pad %s %s", when.Format(DateFormat), account, padAccount)
}

// FormatTransaction renders a platform corrective transaction: the target
// posting carries the amount, the source posting is elided. A non-nil conv
// appends the @@ total-cost notation for cross-currency corrections.
func FormatTransaction(when time.Time, account string, amount decimal.Decimal, currency, sourceAccount string, conv *Conversion) string {
	amountStr := amount.StringFixed(2) + " " + currency
	if conv != nil {
		amountStr += fmt.Sprintf(" @@ %s %s", conv.Amount.Abs().StringFixed(2), conv.Currency)
	}
	return fmt.Sprintf("%s * %q %q\n    %s %s\n    %s",
		when.Format(DateFormat), PlatformPayee, PlatformNarration, account, amountStr, sourceAccount)
}
