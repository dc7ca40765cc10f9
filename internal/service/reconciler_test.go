package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dhr2333/beancount-recon"
	"github.com/dhr2333/beancount-recon/internal/database"
	"github.com/dhr2333/beancount-recon/internal/database/repository"
	"github.com/dhr2333/beancount-recon/internal/storage"
)

const testLedger = `option "operating_currency" "CNY"
2025-01-01 open Assets:Bank:Checking CNY
2025-01-01 open Equity:OpenBalance
2025-01-01 open Expenses:Travel USD

2025-01-05 * "Employer" "salary"
    Assets:Bank:Checking 1000.00 CNY
    Income:Salary
`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	subjects *repository.SubjectRepo
	tasks    *repository.TaskRepo
	store    *storage.FileStore
	orch     *Orchestrator
	sched    *Scheduler
	sup      *Suppressor
}

// newTestEnv wires the real stores on a temp directory. The clock is
// pinned to 2025-02-10.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "recon.db")
	require.NoError(t, database.RunMigrations(dbPath, "../database/migrations"))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	subjects := repository.NewSubjectRepo(db)
	tasks := repository.NewTaskRepo(db)
	store := storage.NewFileStore(filepath.Join(dir, "ledgers"))
	reader := NewBalanceReader(store, time.Minute)

	now := func() time.Time { return day(2025, time.February, 10) }
	orch := NewOrchestrator(subjects, tasks, store, reader)
	orch.now = now
	sched := NewScheduler(subjects, tasks)
	sched.now = now

	return &testEnv{
		subjects: subjects,
		tasks:    tasks,
		store:    store,
		orch:     orch,
		sched:    sched,
		sup:      NewSuppressor(store),
	}
}

// seedSubject registers a monthly subject with the standard test ledger
// and one pending task scheduled 2025-02-01.
func (e *testEnv) seedSubject(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	unit := "months"
	interval := 1
	require.NoError(t, e.subjects.Create(ctx, repository.Subject{
		ID: "s1", Kind: repository.SubjectAccount,
		Name: "Checking", AccountPath: "Assets:Bank:Checking", Currency: "CNY",
		CycleUnit: &unit, CycleInterval: &interval, Enabled: true,
	}))
	sched := day(2025, time.February, 1)
	require.NoError(t, e.tasks.Create(ctx, repository.ScheduledTask{
		ID: "task1", Type: repository.TaskReconciliation,
		SubjectKind: repository.SubjectAccount, SubjectID: "s1",
		ScheduledDate: &sched, Status: repository.StatusPending,
	}))
	e.writeLedger(t, testLedger)
}

func (e *testEnv) writeLedger(t *testing.T, content string) {
	t.Helper()
	mainPath := e.store.MainPath(repository.SubjectAccount, "s1")
	require.NoError(t, os.MkdirAll(filepath.Dir(mainPath), 0o755))
	require.NoError(t, os.WriteFile(mainPath, []byte(content), 0o644))
}

func TestStartReconciliation(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)

	preview, err := e.orch.StartReconciliation(context.Background(), "task1")
	require.NoError(t, err)
	require.Equal(t, day(2025, time.February, 1), preview.AsOfDate)
	require.True(t, preview.IsFirstReconciliation)
	require.Len(t, preview.Balances, 1)
	require.True(t, preview.Balances["CNY"].Equal(decimal.RequireFromString("1000.00")))
}

func TestExecuteBalanced(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	ctx := context.Background()

	result, err := e.orch.ExecuteReconciliation(ctx, "task1",
		decimal.RequireFromString("1000.00"), "CNY", nil, time.Time{})
	require.NoError(t, err)
	require.Equal(t, []string{"2025-02-02 balance Assets:Bank:Checking 1000.00 CNY"}, result.Directives)

	task, err := e.tasks.Get(ctx, "task1")
	require.NoError(t, err)
	require.Equal(t, repository.StatusCompleted, task.Status)
	require.Equal(t, day(2025, time.February, 1), *task.AsOfDate)
	require.Equal(t, day(2025, time.February, 10), *task.CompletedDate)

	// next period derives from the scheduled date, not the completion date
	require.NotEmpty(t, result.NextTaskID)
	next, err := e.tasks.Get(ctx, result.NextTaskID)
	require.NoError(t, err)
	require.Equal(t, repository.StatusPending, next.Status)
	require.Equal(t, day(2025, time.March, 1), *next.ScheduledDate)

	mainData, err := os.ReadFile(e.store.MainPath(repository.SubjectAccount, "s1"))
	require.NoError(t, err)
	require.Contains(t, string(mainData), `include "trans.bean"`)
}

func TestExecuteManualLine(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)

	amount := decimal.RequireFromString("-200.00")
	result, err := e.orch.ExecuteReconciliation(context.Background(), "task1",
		decimal.RequireFromString("1200.00"), "CNY",
		[]AllocationLine{{Account: "Expenses:Food", Amount: &amount}}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"2025-02-01 * \"Beancount-Trans\" \"对账调整\"\n    Expenses:Food -200.00 CNY\n    Assets:Bank:Checking",
		"2025-02-02 balance Assets:Bank:Checking 1200.00 CNY",
	}, result.Directives)
}

func TestExecuteAutoWithinTolerance(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)

	result, err := e.orch.ExecuteReconciliation(context.Background(), "task1",
		decimal.RequireFromString("1000.01"), "CNY",
		[]AllocationLine{{Account: "Equity:OpenBalance"}}, time.Time{})
	require.NoError(t, err)
	// a 0.01 remainder becomes a transaction, never a zero-ish pad
	require.Equal(t, []string{
		"2025-02-01 * \"Beancount-Trans\" \"对账调整\"\n    Equity:OpenBalance -0.01 CNY\n    Assets:Bank:Checking",
		"2025-02-02 balance Assets:Bank:Checking 1000.01 CNY",
	}, result.Directives)
}

func TestExecuteAutoPad(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)

	result, err := e.orch.ExecuteReconciliation(context.Background(), "task1",
		decimal.RequireFromString("1100.00"), "CNY",
		[]AllocationLine{{Account: "Equity:OpenBalance"}}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"2025-02-01 pad Assets:Bank:Checking Equity:OpenBalance",
		"2025-02-02 balance Assets:Bank:Checking 1100.00 CNY",
	}, result.Directives)

	// the padded ledger realizes to the reported actual balance
	directives, err := beancount.ParseFile(e.store.MainPath(repository.SubjectAccount, "s1"))
	require.NoError(t, err)
	balances, err := beancount.Realize(directives, nil)
	require.NoError(t, err)
	require.True(t, balances.Account("Assets:Bank:Checking")["CNY"].Equal(decimal.RequireFromString("1100.00")))
}

func TestExecuteCrossCurrency(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)

	amount := decimal.RequireFromString("-200.00")
	result, err := e.orch.ExecuteReconciliation(context.Background(), "task1",
		decimal.RequireFromString("1200.00"), "CNY",
		[]AllocationLine{{Account: "Expenses:Travel", Amount: &amount}}, time.Time{})
	require.NoError(t, err)
	require.Equal(t,
		"2025-02-01 * \"Beancount-Trans\" \"对账调整\"\n    Expenses:Travel -200.00 USD @@ 200.00 CNY\n    Assets:Bank:Checking",
		result.Directives[0])
}

func TestExecuteMonotonicAsOf(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	ctx := context.Background()
	actual := decimal.RequireFromString("1000.00")

	_, err := e.orch.ExecuteReconciliation(ctx, "task1", actual, "CNY", nil, time.Time{})
	require.NoError(t, err)

	sched := day(2025, time.March, 1)
	require.NoError(t, e.tasks.Create(ctx, repository.ScheduledTask{
		ID: "task2", Type: repository.TaskReconciliation,
		SubjectKind: repository.SubjectAccount, SubjectID: "s1",
		ScheduledDate: &sched, Status: repository.StatusPending,
	}))

	_, err = e.orch.ExecuteReconciliation(ctx, "task2", actual, "CNY", nil, day(2025, time.February, 1))
	require.ErrorIs(t, err, ErrDuplicateReconciliation)
	_, err = e.orch.ExecuteReconciliation(ctx, "task2", actual, "CNY", nil, day(2025, time.January, 15))
	require.ErrorIs(t, err, ErrDuplicateReconciliation)

	// strictly later cutoffs keep working
	_, err = e.orch.ExecuteReconciliation(ctx, "task2", actual, "CNY", nil, day(2025, time.March, 1))
	require.NoError(t, err)
}

func TestExecuteRejectsNonPendingTask(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	ctx := context.Background()
	actual := decimal.RequireFromString("1000.00")

	_, err := e.orch.ExecuteReconciliation(ctx, "task1", actual, "CNY", nil, time.Time{})
	require.NoError(t, err)
	_, err = e.orch.ExecuteReconciliation(ctx, "task1", actual, "CNY", nil, time.Time{})
	require.ErrorIs(t, err, ErrTaskNotPending)

	_, err = e.orch.StartReconciliation(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteValidatesBeforeMutating(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("-50.00")
	_, err := e.orch.ExecuteReconciliation(ctx, "task1",
		decimal.RequireFromString("1200.00"), "CNY",
		[]AllocationLine{{Account: "Expenses:Food", Amount: &amount}}, time.Time{})
	require.ErrorIs(t, err, ErrAllocationMismatch)

	// nothing persisted: no segment written, task still pending
	_, statErr := os.Stat(e.store.SegmentPath(repository.SubjectAccount, "s1"))
	require.True(t, os.IsNotExist(statErr))
	task, err := e.tasks.Get(ctx, "task1")
	require.NoError(t, err)
	require.Equal(t, repository.StatusPending, task.Status)
}

func TestExecuteUnparseableLedger(t *testing.T) {
	e := newTestEnv(t)
	e.seedSubject(t)
	e.writeLedger(t, strings.Replace(testLedger, "2025-01-05", "not-a-date", 1))

	_, err := e.orch.ExecuteReconciliation(context.Background(), "task1",
		decimal.RequireFromString("1000.00"), "CNY", nil, time.Time{})
	require.ErrorIs(t, err, ErrLedgerLoad)
}
