package repository

import "time"

// DateFormat is how date-only columns are stored in sqlite.
const DateFormat = "2006-01-02"

// Task types.
const (
	TaskReconciliation = "reconciliation"
	TaskReview         = "review"
)

// Task statuses.
const (
	StatusInactive  = "inactive"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Subject kinds. The polymorphic subject reference is a tagged pair of
// kind and id, resolved through the subject store, never a raw pointer.
const (
	SubjectAccount = "account"
	SubjectCard    = "card"
)

// Subject is a reconcilable thing: a tracked account or card with its
// ledger account path and optional recurrence configuration.
type Subject struct {
	ID            string
	Kind          string
	Name          string
	AccountPath   string
	Currency      string
	CycleUnit     *string
	CycleInterval *int
	Enabled       bool
	CreatedAt     time.Time
}

// HasCycle reports whether a recurrence is configured.
func (s *Subject) HasCycle() bool {
	return s.CycleUnit != nil && s.CycleInterval != nil
}

// ScheduledTask is the unit of recurring work driving reconciliation.
type ScheduledTask struct {
	ID            string
	Type          string
	SubjectKind   string
	SubjectID     string
	ScheduledDate *time.Time
	CompletedDate *time.Time
	AsOfDate      *time.Time
	Status        string
	CreatedAt     time.Time
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateFormat)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateFormat, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
