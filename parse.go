package beancount

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alfredxing/calc/compute"
	date "github.com/joyt/godate"
	"github.com/shopspring/decimal"
)

// ParseFile parses a ledger file, following include statements relative to
// the file's directory, and returns the directives in file order.
func ParseFile(filename string) ([]Directive, error) {
	ifile, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer ifile.Close()
	return parse(filename, ifile)
}

// Parse parses ledger text from a reader. Include statements cannot be
// resolved without a filename and report an error.
func Parse(r io.Reader) ([]Directive, error) {
	return parse("", r)
}

// ParseString parses ledger text held in memory. The name is recorded in
// directive positions and diagnostics.
func ParseString(name, text string) ([]Directive, error) {
	return parse(name, strings.NewReader(text))
}

type parser struct {
	scanner *linescanner

	dateLayout  string
	strPrevDate string
	prevDate    time.Time
	prevDateErr error
}

// Regex groups for a beancount posting:
// 1: account name
// 2: amount (number or parenthesized expression)
// 3: currency
// 4/5: @@ total cost and its currency
// 6/7: @ per-unit price and its currency
var postingRE = regexp.MustCompile(
	`^(?P<account>[A-Za-z][A-Za-z0-9:._\-]*)` +
		`(?:\s+(?P<amount>[\-+]?\d+(?:\.\d+)?|\([0-9+\-*/. ]+\))` +
		`\s+(?P<currency>[A-Z][A-Z0-9._\-']*)` +
		`(?:\s+(?:@@\s+(?P<converted>[\-+]?\d+(?:\.\d+)?)\s+(?P<convcur>[A-Z][A-Z0-9._\-']*)` +
		`|@\s+(?P<price>[\-+]?\d+(?:\.\d+)?)\s+(?P<pricecur>[A-Z][A-Z0-9._\-']*)))?)?\s*$`,
)

func parse(filename string, r io.Reader) ([]Directive, error) {
	lp := parser{scanner: newLineScanner(filename, r)}

	var directives []Directive
	var comments []string
	var pendingTrans *Transaction

	flush := func() {
		if pendingTrans != nil {
			directives = append(directives, pendingTrans)
			pendingTrans = nil
		}
	}

	for lp.scanner.Scan() {
		rawLine := lp.scanner.Text()
		indented := strings.HasPrefix(rawLine, " ") || strings.HasPrefix(rawLine, "\t")
		trimmedLine := strings.TrimSpace(rawLine)

		var currentComment string
		if commentIdx := strings.Index(trimmedLine, ";"); commentIdx >= 0 {
			currentComment = trimmedLine[commentIdx:]
			trimmedLine = strings.TrimSpace(trimmedLine[:commentIdx])
		}

		if len(trimmedLine) == 0 {
			if len(currentComment) > 0 {
				if pendingTrans != nil && indented {
					pendingTrans.Comments = append(pendingTrans.Comments, currentComment)
				} else {
					comments = append(comments, currentComment)
				}
				continue
			}
			flush()
			continue
		}

		if indented {
			// Posting line belonging to the current transaction.
			if pendingTrans == nil {
				return nil, lp.errorf("posting outside transaction: %s", trimmedLine)
			}
			posting, perr := parsePosting(trimmedLine, currentComment)
			if perr != nil {
				return nil, lp.wrapf(perr)
			}
			pendingTrans.Postings = append(pendingTrans.Postings, posting)
			pendingTrans.Pos.EndLine = lp.scanner.LineNumber()
			continue
		}
		flush()

		before, after, split := strings.Cut(trimmedLine, " ")
		if !split {
			return nil, lp.wrapf(fmt.Errorf("unable to parse directive line: %s", trimmedLine))
		}
		after = strings.TrimSpace(after)

		switch before {
		case "option":
			name, value := parseTwoStrings(after)
			directives = append(directives, &Option{Name: name, Value: value, Pos: lp.pos()})
		case "include":
			incs, ierr := lp.include(after)
			if ierr != nil {
				return nil, lp.wrapf(ierr)
			}
			directives = append(directives, incs...)
		case "plugin", "pushtag", "poptag":
			// not interpreted
		default:
			d, derr := lp.parseDated(before, after, currentComment, comments)
			if derr != nil {
				return nil, lp.wrapf(derr)
			}
			comments = nil
			if t, ok := d.(*Transaction); ok {
				pendingTrans = t
			} else {
				directives = append(directives, d)
			}
		}
	}
	flush()
	return directives, nil
}

func (lp *parser) pos() Position {
	return Position{Filename: lp.scanner.Name(), Line: lp.scanner.LineNumber(), EndLine: lp.scanner.LineNumber()}
}

func (lp *parser) wrapf(err error) error {
	return fmt.Errorf("%s:%d: unable to parse directive: %w", lp.scanner.Name(), lp.scanner.LineNumber(), err)
}

func (lp *parser) errorf(format string, args ...any) error {
	return lp.wrapf(fmt.Errorf(format, args...))
}

func (lp *parser) include(arg string) ([]Directive, error) {
	pattern := strings.Trim(arg, `"`)
	if lp.scanner.Name() == "" {
		return nil, fmt.Errorf("unable to include file(%s): %w", pattern, errors.New("no base directory"))
	}
	paths, _ := filepath.Glob(filepath.Join(filepath.Dir(lp.scanner.Name()), pattern))
	if len(paths) < 1 {
		return nil, fmt.Errorf("unable to include file(%s): %w", pattern, errors.New("not found"))
	}
	var directives []Directive
	for _, incpath := range paths {
		sub, err := ParseFile(incpath)
		if err != nil {
			return nil, err
		}
		directives = append(directives, sub...)
	}
	return directives, nil
}

func (lp *parser) parseDate(dateString string) (time.Time, error) {
	// seen before, skip parse
	if lp.strPrevDate == dateString {
		return lp.prevDate, lp.prevDateErr
	}

	transDate, err := time.Parse(lp.dateLayout, dateString)
	if err != nil {
		// try to find new date layout
		transDate, lp.dateLayout, err = date.ParseAndGetLayout(dateString)
		if err != nil {
			err = fmt.Errorf("unable to parse date(%s): %w", dateString, err)
		}
	}

	lp.strPrevDate = dateString
	lp.prevDate = transDate
	lp.prevDateErr = err

	return transDate, err
}

func (lp *parser) parseDated(dateString, rest, comment string, comments []string) (Directive, error) {
	when, derr := lp.parseDate(dateString)
	if derr != nil {
		return nil, derr
	}

	keyword, args, _ := strings.Cut(rest, " ")
	args = strings.TrimSpace(args)

	switch keyword {
	case "open":
		fields := strings.Fields(args)
		if len(fields) < 1 {
			return nil, fmt.Errorf("open requires an account: %s", rest)
		}
		o := &Open{Date: when, Account: fields[0], Pos: lp.pos()}
		if len(fields) > 1 {
			for _, c := range strings.Split(strings.Join(fields[1:], ""), ",") {
				if c = strings.TrimSpace(c); c != "" {
					o.Currencies = append(o.Currencies, c)
				}
			}
		}
		return o, nil
	case "close":
		fields := strings.Fields(args)
		if len(fields) != 1 {
			return nil, fmt.Errorf("close requires an account: %s", rest)
		}
		return &Close{Date: when, Account: fields[0], Pos: lp.pos()}, nil
	case "pad":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return nil, fmt.Errorf("pad requires account and source account: %s", rest)
		}
		return &Pad{Date: when, Account: fields[0], SourceAccount: fields[1], Pos: lp.pos()}, nil
	case "balance":
		fields := strings.Fields(args)
		if len(fields) != 3 {
			return nil, fmt.Errorf("balance requires account, amount and currency: %s", rest)
		}
		amount, aerr := decimal.NewFromString(fields[1])
		if aerr != nil {
			return nil, fmt.Errorf("invalid balance amount(%s): %w", fields[1], aerr)
		}
		return &Balance{Date: when, Account: fields[0], Amount: amount, Currency: fields[2], Pos: lp.pos()}, nil
	case "note", "document", "event", "price", "commodity":
		// recognized but not interpreted
		return &Option{Name: keyword, Value: args, Pos: lp.pos()}, nil
	}

	// transaction header: FLAG ["payee"] "narration"
	flag := keyword
	if flag == "txn" {
		flag = "*"
	}
	if flag != "*" && flag != "!" {
		return nil, fmt.Errorf("unknown directive: %s", rest)
	}
	payee, narration := parseTwoStrings(args)
	if narration == "" {
		// a single quoted string is the narration, not the payee
		payee, narration = "", payee
	}
	t := &Transaction{Date: when, Flag: flag, Payee: payee, Narration: narration, Pos: lp.pos()}
	if comment != "" {
		t.Comments = append(t.Comments, comment)
	}
	t.Comments = append(t.Comments, comments...)
	return t, nil
}

// parseTwoStrings extracts up to two double-quoted strings from s.
func parseTwoStrings(s string) (first, second string) {
	var parts []string
	for {
		start := strings.Index(s, `"`)
		if start < 0 {
			break
		}
		end := strings.Index(s[start+1:], `"`)
		if end < 0 {
			break
		}
		parts = append(parts, s[start+1:start+1+end])
		s = s[start+end+2:]
		if len(parts) == 2 {
			break
		}
	}
	switch len(parts) {
	case 2:
		return parts[0], parts[1]
	case 1:
		return parts[0], ""
	}
	return "", ""
}

func parsePosting(trimmedLine, comment string) (Posting, error) {
	m := postingRE.FindStringSubmatch(trimmedLine)
	if m == nil {
		return Posting{}, fmt.Errorf("invalid posting: %q", trimmedLine)
	}

	p := Posting{Account: m[1], Comment: comment}

	if m[2] != "" {
		var amount decimal.Decimal
		if strings.HasPrefix(m[2], "(") {
			val, err := compute.Evaluate(m[2])
			if err != nil {
				return Posting{}, fmt.Errorf("invalid amount expression(%s): %w", m[2], err)
			}
			amount = decimal.NewFromFloat(val)
		} else {
			var err error
			amount, err = decimal.NewFromString(m[2])
			if err != nil {
				return Posting{}, fmt.Errorf("invalid amount(%s): %w", m[2], err)
			}
		}
		p.Amount = &amount
		p.Currency = m[3]
	}

	// @@ explicit converted amount
	if m[4] != "" {
		conv, err := decimal.NewFromString(m[4])
		if err != nil {
			return Posting{}, err
		}
		p.Converted = &conv
		p.ConvertedCurrency = m[5]
	}

	// @ rate-based conversion
	if m[6] != "" {
		rate, err := decimal.NewFromString(m[6])
		if err != nil {
			return Posting{}, err
		}
		p.Price = &rate
		p.PriceCurrency = m[7]
	}
	return p, nil
}
