package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SubjectRepo persists reconcilable subjects.
type SubjectRepo struct{ db *sql.DB }

func NewSubjectRepo(db *sql.DB) *SubjectRepo { return &SubjectRepo{db: db} }

const subjectColumns = `id, kind, name, account_path, currency, cycle_unit, cycle_interval, enabled, created_at`

func (r *SubjectRepo) Create(ctx context.Context, s Subject) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO subjects(id, kind, name, account_path, currency, cycle_unit, cycle_interval, enabled, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, s.ID, s.Kind, s.Name, s.AccountPath, s.Currency, s.CycleUnit, s.CycleInterval, s.Enabled)
	return err
}

func (r *SubjectRepo) Get(ctx context.Context, kind, id string) (*Subject, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE kind = ? AND id = ?`, kind, id)
	var s Subject
	if err := row.Scan(&s.ID, &s.Kind, &s.Name, &s.AccountPath, &s.Currency,
		&s.CycleUnit, &s.CycleInterval, &s.Enabled, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubjectRepo) List(ctx context.Context) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Kind, &s.Name, &s.AccountPath, &s.Currency,
			&s.CycleUnit, &s.CycleInterval, &s.Enabled, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetCycle updates the recurrence configuration. Pass nils to remove it.
func (r *SubjectRepo) SetCycle(ctx context.Context, kind, id string, unit *string, interval *int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subjects SET cycle_unit = ?, cycle_interval = ? WHERE kind = ? AND id = ?`,
		unit, interval, kind, id)
	return err
}

func (r *SubjectRepo) SetEnabled(ctx context.Context, kind, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subjects SET enabled = ? WHERE kind = ? AND id = ?`, enabled, kind, id)
	return err
}
