package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhr2333/beancount-recon"
	"github.com/dhr2333/beancount-recon/internal/cycle"
	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

// Orchestrator drives the reconciliation of a scheduled task end to end:
// balance preview, allocation validation, directive generation, ledger
// append, task completion and next-period scheduling.
type Orchestrator struct {
	subjects SubjectStore
	tasks    TaskStore
	ledger   LedgerStore
	reader   *BalanceReader

	// now is replaceable in tests.
	now func() time.Time
}

func NewOrchestrator(subjects SubjectStore, tasks TaskStore, ledger LedgerStore, reader *BalanceReader) *Orchestrator {
	return &Orchestrator{
		subjects: subjects,
		tasks:    tasks,
		ledger:   ledger,
		reader:   reader,
		now:      time.Now,
	}
}

// Preview is the read-only view returned before a reconciliation is
// executed: what the ledger says the subject holds as of the cutoff.
type Preview struct {
	Balances              map[string]decimal.Decimal
	AsOfDate              time.Time
	IsFirstReconciliation bool
}

// Result reports an executed reconciliation: the appended directive
// strings and the id of the next scheduled task, empty when the subject
// has no recurrence.
type Result struct {
	Directives []string
	NextTaskID string
}

func (o *Orchestrator) today() time.Time {
	y, m, d := o.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// pendingTask loads the task and its subject, rejecting anything that is
// not executable.
func (o *Orchestrator) pendingTask(ctx context.Context, taskID string) (*repository.ScheduledTask, *repository.Subject, error) {
	task, err := o.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if task.Status != repository.StatusPending {
		return nil, nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, ErrTaskNotPending)
	}
	subject, err := o.subjects.Get(ctx, task.SubjectKind, task.SubjectID)
	if err != nil {
		return nil, nil, err
	}
	if subject == nil {
		return nil, nil, fmt.Errorf("subject %s/%s: %w", task.SubjectKind, task.SubjectID, ErrNotFound)
	}
	return task, subject, nil
}

// defaultAsOf is the cutoff used when the caller supplies none: the
// task's scheduled date, or today for unscheduled tasks.
func (o *Orchestrator) defaultAsOf(task *repository.ScheduledTask) time.Time {
	if task.ScheduledDate != nil {
		return *task.ScheduledDate
	}
	return o.today()
}

// StartReconciliation computes the expected balances for a pending task
// without mutating anything.
func (o *Orchestrator) StartReconciliation(ctx context.Context, taskID string) (*Preview, error) {
	task, subject, err := o.pendingTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	asOf := o.defaultAsOf(task)
	prior, err := o.tasks.MaxCompletedAsOf(ctx, task.SubjectKind, task.SubjectID)
	if err != nil {
		return nil, err
	}
	balances, err := o.reader.Balance(task.SubjectKind, task.SubjectID, subject.AccountPath, &asOf)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Balances:              balances,
		AsOfDate:              asOf,
		IsFirstReconciliation: prior == nil,
	}, nil
}

// ExecuteReconciliation validates the allocation, appends the corrective
// directives and completes the task. All validation happens before the
// ledger is touched; the task status flips only after the append
// succeeded. A zero asOf falls back to the task's scheduled date.
func (o *Orchestrator) ExecuteReconciliation(ctx context.Context, taskID string, actual decimal.Decimal, currency string, lines []AllocationLine, asOf time.Time) (*Result, error) {
	task, subject, err := o.pendingTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = o.defaultAsOf(task)
	}

	prior, err := o.tasks.MaxCompletedAsOf(ctx, task.SubjectKind, task.SubjectID)
	if err != nil {
		return nil, err
	}
	if prior != nil && !asOf.After(*prior) {
		return nil, fmt.Errorf("as-of %s not after last reconciled %s: %w",
			asOf.Format(repository.DateFormat), prior.Format(repository.DateFormat), ErrDuplicateReconciliation)
	}

	directives, err := o.reader.Directives(task.SubjectKind, task.SubjectID)
	if err != nil {
		return nil, err
	}
	balances, err := o.reader.Balance(task.SubjectKind, task.SubjectID, subject.AccountPath, &asOf)
	if err != nil {
		return nil, err
	}
	expected := balances[currency] // zero when absent

	if err := ValidateAllocation(actual, expected, lines); err != nil {
		return nil, err
	}

	out := buildDirectives(directives, subject.AccountPath, actual, expected, currency, lines, asOf)

	if err := o.ledger.AppendDirectives(task.SubjectKind, task.SubjectID, out); err != nil {
		return nil, fmt.Errorf("append directives: %w", err)
	}
	if err := o.tasks.Complete(ctx, taskID, o.today(), asOf); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotPending)
		}
		return nil, err
	}

	nextID, err := o.scheduleNext(ctx, task, subject)
	if err != nil {
		return nil, err
	}
	return &Result{Directives: out, NextTaskID: nextID}, nil
}

// buildDirectives renders the ordered corrective directive set: manual
// transactions, then the auto transaction (when the remainder is exactly
// the tolerance, avoiding a degenerate pad) or a pad, then the balance
// assertion dated one day past the cutoff.
func buildDirectives(ledger []beancount.Directive, subjectAccount string, actual, expected decimal.Decimal, currency string, lines []AllocationLine, asOf time.Time) []string {
	var out []string
	difference := actual.Sub(expected)
	if !difference.IsZero() {
		sum := decimal.Zero
		var auto *AllocationLine
		for i := range lines {
			line := lines[i]
			if line.Auto() {
				auto = &lines[i]
				continue
			}
			out = append(out, formatCorrective(ledger, line.Account, *line.Amount, currency, subjectAccount, asOf))
			sum = sum.Add(*line.Amount)
		}
		remaining := difference.Neg().Sub(sum)
		if auto != nil {
			if remaining.Abs().Equal(Tolerance) {
				out = append(out, formatCorrective(ledger, auto.Account, remaining, currency, subjectAccount, asOf))
			} else {
				out = append(out, beancount.FormatPad(asOf, subjectAccount, auto.Account))
			}
		}
	}
	out = append(out, beancount.FormatBalance(asOf.AddDate(0, 0, 1), subjectAccount, actual, currency))
	return out
}

// formatCorrective renders one corrective transaction, switching to the
// target account's accepted currency with an @@ total-cost annotation
// when it rejects the source currency.
func formatCorrective(ledger []beancount.Directive, account string, amount decimal.Decimal, currency, subjectAccount string, asOf time.Time) string {
	target := beancount.SelectCurrency(ledger, account, currency)
	var conv *beancount.Conversion
	if target != currency {
		conv = &beancount.Conversion{Amount: amount, Currency: currency}
	}
	return beancount.FormatTransaction(asOf, account, amount, target, subjectAccount, conv)
}

// scheduleNext seeds the following period's pending task. The new
// scheduled date derives from the current task's scheduled date, advanced
// past today, keeping period alignment even when execution ran late.
func (o *Orchestrator) scheduleNext(ctx context.Context, task *repository.ScheduledTask, subject *repository.Subject) (string, error) {
	if !subject.HasCycle() || task.ScheduledDate == nil {
		return "", nil
	}
	unit, err := cycle.ParseUnit(*subject.CycleUnit)
	if err != nil {
		return "", err
	}
	next, err := cycle.NextAfter(unit, *subject.CycleInterval, *task.ScheduledDate, o.today())
	if err != nil {
		return "", err
	}
	nextTask := repository.ScheduledTask{
		ID:            uuid.NewString(),
		Type:          repository.TaskReconciliation,
		SubjectKind:   task.SubjectKind,
		SubjectID:     task.SubjectID,
		ScheduledDate: &next,
		Status:        repository.StatusPending,
	}
	if err := o.tasks.Create(ctx, nextTask); err != nil {
		return "", fmt.Errorf("schedule next task: %w", err)
	}
	return nextTask.ID, nil
}
