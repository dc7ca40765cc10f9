package service

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

func TestBalanceReaderUnknownAccount(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	reader := NewBalanceReader(e.store, time.Minute)

	balances, err := reader.Balance(repository.SubjectAccount, "s1", "Assets:Nope", nil)
	require.NoError(t, err)
	require.Empty(t, balances)
}

func TestBalanceReaderMissingLedger(t *testing.T) {
	e := newTestEnv(t)
	reader := NewBalanceReader(e.store, time.Minute)

	_, err := reader.Balance(repository.SubjectAccount, "nobody", "Assets:Bank:Checking", nil)
	require.ErrorIs(t, err, ErrLedgerLoad)
}

func TestBalanceReaderCutoff(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	reader := NewBalanceReader(e.store, time.Minute)

	before := day(2025, time.January, 4)
	balances, err := reader.Balance(repository.SubjectAccount, "s1", "Assets:Bank:Checking", &before)
	require.NoError(t, err)
	require.Empty(t, balances)

	after := day(2025, time.January, 5)
	balances, err = reader.Balance(repository.SubjectAccount, "s1", "Assets:Bank:Checking", &after)
	require.NoError(t, err)
	require.True(t, balances["CNY"].Equal(decimal.RequireFromString("1000.00")))
}

func TestBalanceReaderSeesLedgerEdits(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	reader := NewBalanceReader(e.store, time.Minute)

	balances, err := reader.Balance(repository.SubjectAccount, "s1", "Assets:Bank:Checking", nil)
	require.NoError(t, err)
	require.True(t, balances["CNY"].Equal(decimal.RequireFromString("1000.00")))

	e.writeLedger(t, strings.Replace(testLedger, "1000.00 CNY", "1250.00 CNY", 1))
	// make the modification time unambiguous for the cache key
	mainPath := e.store.MainPath(repository.SubjectAccount, "s1")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(mainPath, future, future))

	balances, err = reader.Balance(repository.SubjectAccount, "s1", "Assets:Bank:Checking", nil)
	require.NoError(t, err)
	require.True(t, balances["CNY"].Equal(decimal.RequireFromString("1250.00")))
}
