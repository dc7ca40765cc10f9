package beancount

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position locates a directive in its source file. It is carried for
// line-level mutation (commenting out duplicated entries) and never takes
// part in directive identity or matching.
type Position struct {
	Filename string
	Line     int // first line of the directive, 1-based
	EndLine  int // last line of the directive, inclusive
}

// Directive is one dated ledger statement.
type Directive interface {
	At() time.Time
	Kind() string
	Location() Position
}

// Posting holds one leg of a transaction. Amount is nil for an elided
// posting whose value is inferred from the remaining legs.
type Posting struct {
	Account  string
	Amount   *decimal.Decimal
	Currency string

	// Total cost using @@ notation
	Converted         *decimal.Decimal
	ConvertedCurrency string
	// Per-unit price using @ notation
	Price         *decimal.Decimal
	PriceCurrency string

	Comment string
}

// Transaction is the basis of a ledger. A Transaction has a Date (with no
// time component), an optional Payee and Narration, and a list of Postings
// that hold the value of the transaction for each account.
type Transaction struct {
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Postings  []Posting
	Comments  []string
	Pos       Position
}

func (t *Transaction) At() time.Time      { return t.Date }
func (t *Transaction) Kind() string       { return "transaction" }
func (t *Transaction) Location() Position { return t.Pos }

// Pad auto-balances Account against SourceAccount as of Date, absorbing
// whatever difference the next balance assertion reveals.
type Pad struct {
	Date          time.Time
	Account       string
	SourceAccount string
	Pos           Position
}

func (p *Pad) At() time.Time      { return p.Date }
func (p *Pad) Kind() string       { return "pad" }
func (p *Pad) Location() Position { return p.Pos }

// Balance asserts that Account holds exactly Amount of Currency at the
// start of Date.
type Balance struct {
	Date     time.Time
	Account  string
	Amount   decimal.Decimal
	Currency string
	Pos      Position
}

func (b *Balance) At() time.Time      { return b.Date }
func (b *Balance) Kind() string       { return "balance" }
func (b *Balance) Location() Position { return b.Pos }

// Open declares an account. Currencies is the optional constraint list; an
// empty list means the account accepts any currency.
type Open struct {
	Date       time.Time
	Account    string
	Currencies []string
	Pos        Position
}

func (o *Open) At() time.Time      { return o.Date }
func (o *Open) Kind() string       { return "open" }
func (o *Open) Location() Position { return o.Pos }

// Close ends an account declaration.
type Close struct {
	Date    time.Time
	Account string
	Pos     Position
}

func (c *Close) At() time.Time      { return c.Date }
func (c *Close) Kind() string       { return "close" }
func (c *Close) Location() Position { return c.Pos }

// Option is a ledger-wide "option" statement, e.g. operating_currency.
type Option struct {
	Name  string
	Value string
	Pos   Position
}

func (o *Option) At() time.Time      { return time.Time{} }
func (o *Option) Kind() string       { return "option" }
func (o *Option) Location() Position { return o.Pos }
