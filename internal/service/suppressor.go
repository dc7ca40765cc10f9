package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/dhr2333/beancount-recon"
)

// nearMissDistance bounds the payee edit distance reported as a near miss.
const nearMissDistance = 3

// Duplicate is one platform entry that also exists in the external tree,
// located by its line numbers in the platform segment.
type Duplicate struct {
	Kind    string
	Date    time.Time
	Account string
	Lines   []int
}

// NearMiss is a diagnostic: a platform transaction that did not match
// structurally but shares its date and an account with an external
// transaction of a similar payee. Never mutated, only reported.
type NearMiss struct {
	Date          time.Time
	Account       string
	PlatformPayee string
	ExternalPayee string
	Distance      int
}

// DuplicateReport is the outcome of a detection pass.
type DuplicateReport struct {
	HasDuplicates bool
	Duplicates    []Duplicate
	NearMisses    []NearMiss
}

// Suppressor finds platform entries duplicated by the externally synced
// ledger tree and comments them out in place. Entries already commented
// are invisible to the parser, which makes every mutation idempotent.
type Suppressor struct {
	ledger LedgerStore
}

func NewSuppressor(ledger LedgerStore) *Suppressor {
	return &Suppressor{ledger: ledger}
}

// Detect matches the platform segment against the external tree and
// reports duplicates with their platform-side line numbers.
func (s *Suppressor) Detect(kind, id string) (*DuplicateReport, error) {
	platform, err := s.platformEntries(kind, id)
	if err != nil {
		return nil, err
	}
	external, err := s.externalEntries(kind, id)
	if err != nil {
		return nil, err
	}

	pairs := beancount.MatchAll(platform, external)
	matched := make(map[beancount.Directive]bool, len(pairs))
	consumed := make(map[beancount.Directive]bool, len(pairs))
	report := &DuplicateReport{}
	for _, pair := range pairs {
		matched[pair.A] = true
		consumed[pair.B] = true
		pos := pair.A.Location()
		lines := make([]int, 0, pos.EndLine-pos.Line+1)
		for n := pos.Line; n <= pos.EndLine; n++ {
			lines = append(lines, n)
		}
		report.Duplicates = append(report.Duplicates, Duplicate{
			Kind:    pair.A.Kind(),
			Date:    pair.A.At(),
			Account: directiveAccount(pair.A),
			Lines:   lines,
		})
	}
	report.HasDuplicates = len(report.Duplicates) > 0
	report.NearMisses = nearMisses(platform, external, matched, consumed)
	return report, nil
}

// SuppressDuplicates comments out every duplicated platform line and
// returns the number of entries commented. Running it again comments
// nothing: commented entries no longer parse as directives.
func (s *Suppressor) SuppressDuplicates(kind, id string) (int, error) {
	report, err := s.Detect(kind, id)
	if err != nil {
		return 0, err
	}
	if !report.HasDuplicates {
		return 0, nil
	}
	lines, err := s.ledger.ReadSegment(kind, id)
	if err != nil {
		return 0, err
	}
	var script []editOp
	for _, dup := range report.Duplicates {
		for _, n := range dup.Lines {
			script = append(script, editOp{line: n, op: opComment})
		}
	}
	lines, _ = applyEdits(lines, script)
	if err := s.ledger.RewriteSegment(kind, id, lines); err != nil {
		return 0, err
	}
	return len(report.Duplicates), nil
}

var (
	platformTxnRE  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \* "` + beancount.PlatformPayee + `"`)
	padOrBalanceRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} (pad|balance) `)
)

// RestoreAll strips the comment markers put there by SuppressDuplicates
// and returns the number of entries restored. Only recognizably
// platform-authored entries are touched: corrective transactions with the
// platform payee, pads, and balance assertions. User-written comments
// stay commented.
func (s *Suppressor) RestoreAll(kind, id string) (int, error) {
	lines, err := s.ledger.ReadSegment(kind, id)
	if err != nil {
		return 0, err
	}
	var script []editOp
	restored := 0
	for i := 0; i < len(lines); i++ {
		content, commented := uncommented(lines[i])
		if !commented {
			continue
		}
		if !platformTxnRE.MatchString(content) && !padOrBalanceRE.MatchString(content) {
			continue
		}
		restored++
		script = append(script, editOp{line: i + 1, op: opUncomment})
		// Commented posting lines belong to the entry above them.
		for i+1 < len(lines) {
			next, ok := uncommented(lines[i+1])
			if !ok || !strings.HasPrefix(next, " ") {
				break
			}
			i++
			script = append(script, editOp{line: i + 1, op: opUncomment})
		}
	}
	if restored == 0 {
		return 0, nil
	}
	lines, _ = applyEdits(lines, script)
	if err := s.ledger.RewriteSegment(kind, id, lines); err != nil {
		return 0, err
	}
	return restored, nil
}

func (s *Suppressor) platformEntries(kind, id string) ([]beancount.Directive, error) {
	lines, err := s.ledger.ReadSegment(kind, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	directives, err := beancount.ParseString(s.ledger.SegmentPath(kind, id), strings.Join(lines, "\n"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerLoad, err)
	}
	return matchable(directives), nil
}

func (s *Suppressor) externalEntries(kind, id string) ([]beancount.Directive, error) {
	paths, err := s.ledger.ReadExternalTree(kind, id)
	if err != nil {
		return nil, err
	}
	var out []beancount.Directive
	for _, path := range paths {
		directives, err := beancount.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLedgerLoad, err)
		}
		out = append(out, matchable(directives)...)
	}
	return out, nil
}

// matchable keeps the directive kinds that take part in duplicate
// matching: transactions, pads and balance assertions.
func matchable(directives []beancount.Directive) []beancount.Directive {
	var out []beancount.Directive
	for _, d := range directives {
		switch d.(type) {
		case *beancount.Transaction, *beancount.Pad, *beancount.Balance:
			out = append(out, d)
		}
	}
	return out
}

func directiveAccount(d beancount.Directive) string {
	switch v := d.(type) {
	case *beancount.Transaction:
		if len(v.Postings) > 0 {
			return v.Postings[0].Account
		}
	case *beancount.Pad:
		return v.Account
	case *beancount.Balance:
		return v.Account
	}
	return ""
}

func nearMisses(platform, external []beancount.Directive, matched, consumed map[beancount.Directive]bool) []NearMiss {
	var out []NearMiss
	for _, pd := range platform {
		pt, ok := pd.(*beancount.Transaction)
		if !ok || matched[pd] {
			continue
		}
		for _, ed := range external {
			et, ok := ed.(*beancount.Transaction)
			if !ok || consumed[ed] || !pt.Date.Equal(et.Date) {
				continue
			}
			account, shared := sharedAccount(pt, et)
			if !shared {
				continue
			}
			dist := levenshtein.ComputeDistance(pt.Payee, et.Payee)
			if dist == 0 || dist > nearMissDistance {
				continue
			}
			out = append(out, NearMiss{
				Date:          pt.Date,
				Account:       account,
				PlatformPayee: pt.Payee,
				ExternalPayee: et.Payee,
				Distance:      dist,
			})
		}
	}
	return out
}

func sharedAccount(a, b *beancount.Transaction) (string, bool) {
	for _, pa := range a.Postings {
		for _, pb := range b.Postings {
			if pa.Account == pb.Account {
				return pa.Account, true
			}
		}
	}
	return "", false
}
