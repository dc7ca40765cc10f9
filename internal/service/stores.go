package service

import (
	"context"
	"time"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

// SubjectStore resolves the polymorphic (kind, id) subject reference and
// holds its recurrence configuration.
type SubjectStore interface {
	Create(ctx context.Context, s repository.Subject) error
	Get(ctx context.Context, kind, id string) (*repository.Subject, error)
	SetCycle(ctx context.Context, kind, id string, unit *string, interval *int) error
	SetEnabled(ctx context.Context, kind, id string, enabled bool) error
}

// TaskStore persists scheduled tasks. Complete is the atomic
// pending->completed compare-and-set.
type TaskStore interface {
	Get(ctx context.Context, id string) (*repository.ScheduledTask, error)
	Create(ctx context.Context, t repository.ScheduledTask) error
	Complete(ctx context.Context, id string, completedDate, asOfDate time.Time) error
	CompleteReview(ctx context.Context, id string, completedDate time.Time) error
	Cancel(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	CancelPendingForSubject(ctx context.Context, kind, subjectID string) (int64, error)
	MaxCompletedAsOf(ctx context.Context, kind, subjectID string) (*time.Time, error)
	ListDue(ctx context.Context, asOf time.Time) ([]repository.ScheduledTask, error)
	ListPending(ctx context.Context) ([]repository.ScheduledTask, error)
}

// LedgerStore is the per-subject ledger filesystem.
type LedgerStore interface {
	MainPath(kind, id string) string
	SegmentPath(kind, id string) string
	ModTime(kind, id string) (time.Time, error)
	AppendDirectives(kind, id string, directives []string) error
	ReadSegment(kind, id string) ([]string, error)
	RewriteSegment(kind, id string, lines []string) error
	ReadExternalTree(kind, id string) ([]string, error)
}
