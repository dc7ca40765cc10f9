package service

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/dhr2333/beancount-recon"
)

// BalanceReader parses subject ledgers and realizes account balances.
// Parse results are kept in a TTL cache keyed by subject and ledger
// modification time, so an edited ledger is never served stale.
type BalanceReader struct {
	store LedgerStore
	cache *gocache.Cache
}

func NewBalanceReader(store LedgerStore, ttl time.Duration) *BalanceReader {
	return &BalanceReader{
		store: store,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Directives returns the subject's parsed ledger, cached.
func (r *BalanceReader) Directives(kind, id string) ([]beancount.Directive, error) {
	mod, err := r.store.ModTime(kind, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerLoad, err)
	}
	key := fmt.Sprintf("%s/%s@%d", kind, id, mod.UnixNano())
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]beancount.Directive), nil
	}
	directives, err := beancount.ParseFile(r.store.MainPath(kind, id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerLoad, err)
	}
	r.cache.Set(key, directives, gocache.DefaultExpiration)
	return directives, nil
}

// Balance realizes the account's balance per currency, truncated at asOf
// when non-nil. The empty map means the account is unknown or settled.
func (r *BalanceReader) Balance(kind, id, account string, asOf *time.Time) (map[string]decimal.Decimal, error) {
	directives, err := r.Directives(kind, id)
	if err != nil {
		return nil, err
	}
	balances, err := beancount.Realize(directives, asOf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerLoad, err)
	}
	return balances.Account(account), nil
}
