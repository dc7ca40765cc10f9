package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotPending is returned when a status transition requires a pending
// task and the compare-and-set matched no row.
var ErrNotPending = errors.New("task is not pending")

// ErrNotInactive is the same for the review-task activation transition.
var ErrNotInactive = errors.New("task is not inactive")

// TaskRepo persists scheduled tasks. The pending->completed transition is
// a single guarded UPDATE, which is the serialization point for the whole
// reconciliation flow.
type TaskRepo struct{ db *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

const taskColumns = `id, task_type, subject_kind, subject_id, scheduled_date, completed_date, as_of_date, status, created_at`

func (r *TaskRepo) Create(ctx context.Context, t ScheduledTask) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO scheduled_tasks(
	 id, task_type, subject_kind, subject_id, scheduled_date, completed_date, as_of_date, status, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, t.ID, t.Type, t.SubjectKind, t.SubjectID,
		dateString(t.ScheduledDate), dateString(t.CompletedDate), dateString(t.AsOfDate), t.Status)
	return err
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*ScheduledTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// Complete performs the pending->completed compare-and-set. A concurrent
// completion attempt loses the race and gets ErrNotPending.
func (r *TaskRepo) Complete(ctx context.Context, id string, completedDate, asOfDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE scheduled_tasks
	SET status = ?, completed_date = ?, as_of_date = ?
	WHERE id = ? AND status = ?
	`, StatusCompleted, completedDate.Format(DateFormat), asOfDate.Format(DateFormat), id, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// CompleteReview finishes a review task, which carries no ledger cutoff.
func (r *TaskRepo) CompleteReview(ctx context.Context, id string, completedDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE scheduled_tasks
	SET status = ?, completed_date = ?
	WHERE id = ? AND status = ?
	`, StatusCompleted, completedDate.Format(DateFormat), id, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// Cancel moves a pending task to cancelled.
func (r *TaskRepo) Cancel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = ? WHERE id = ? AND status = ?`,
		StatusCancelled, id, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// Activate moves an inactive review task to pending (external activation
// signal, e.g. the synced statement arrived).
func (r *TaskRepo) Activate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = ? WHERE id = ? AND status = ?`,
		StatusPending, id, StatusInactive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotInactive
	}
	return nil
}

// CancelPendingForSubject cancels every pending task of a subject. Used
// when the subject's recurrence is removed or the subject is disabled.
func (r *TaskRepo) CancelPendingForSubject(ctx context.Context, kind, subjectID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = ? WHERE subject_kind = ? AND subject_id = ? AND status = ?`,
		StatusCancelled, kind, subjectID, StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MaxCompletedAsOf returns the latest as_of_date among completed tasks of
// a subject, or nil if the subject was never reconciled.
func (r *TaskRepo) MaxCompletedAsOf(ctx context.Context, kind, subjectID string) (*time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT MAX(as_of_date) FROM scheduled_tasks
	WHERE subject_kind = ? AND subject_id = ? AND status = ?
	`, kind, subjectID, StatusCompleted)
	var s *string
	if err := row.Scan(&s); err != nil {
		return nil, err
	}
	return parseDate(s)
}

// ListDue returns pending reconciliation tasks scheduled on or before the
// given date, oldest first.
func (r *TaskRepo) ListDue(ctx context.Context, asOf time.Time) ([]ScheduledTask, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks
	WHERE status = ? AND task_type = ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?
	ORDER BY scheduled_date ASC`, StatusPending, TaskReconciliation, asOf.Format(DateFormat))
}

// ListPending returns every pending task, oldest schedule first.
func (r *TaskRepo) ListPending(ctx context.Context) ([]ScheduledTask, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks
	WHERE status = ? ORDER BY scheduled_date ASC, created_at ASC`, StatusPending)
}

// ListForSubject returns all tasks of a subject, newest first.
func (r *TaskRepo) ListForSubject(ctx context.Context, kind, subjectID string) ([]ScheduledTask, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks
	WHERE subject_kind = ? AND subject_id = ? ORDER BY created_at DESC`, kind, subjectID)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]ScheduledTask, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*ScheduledTask, error) {
	var t ScheduledTask
	var scheduled, completed, asOf *string
	if err := row.Scan(&t.ID, &t.Type, &t.SubjectKind, &t.SubjectID,
		&scheduled, &completed, &asOf, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.ScheduledDate, err = parseDate(scheduled); err != nil {
		return nil, err
	}
	if t.CompletedDate, err = parseDate(completed); err != nil {
		return nil, err
	}
	if t.AsOfDate, err = parseDate(asOf); err != nil {
		return nil, err
	}
	return &t, nil
}
