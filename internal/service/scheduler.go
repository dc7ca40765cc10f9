package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dhr2333/beancount-recon/internal/cycle"
	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

// Scheduler owns the scheduled-task state machine outside of task
// execution: seeding subjects, reconfiguring recurrences and driving
// review-task transitions. No other component mutates task status.
type Scheduler struct {
	subjects SubjectStore
	tasks    TaskStore

	now func() time.Time
}

func NewScheduler(subjects SubjectStore, tasks TaskStore) *Scheduler {
	return &Scheduler{subjects: subjects, tasks: tasks, now: time.Now}
}

func (s *Scheduler) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RegisterSubject creates a subject and, when a recurrence is configured,
// seeds its first pending reconciliation task. Returns the new task id,
// empty without a recurrence.
func (s *Scheduler) RegisterSubject(ctx context.Context, subject repository.Subject) (string, error) {
	if subject.Kind != repository.SubjectAccount && subject.Kind != repository.SubjectCard {
		return "", fmt.Errorf("%w: unknown subject kind %q", cycle.ErrInvalidArgument, subject.Kind)
	}
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return "", err
	}
	if !subject.HasCycle() {
		return "", nil
	}
	return s.seedTask(ctx, subject.Kind, subject.ID, *subject.CycleUnit, *subject.CycleInterval)
}

// ConfigureCycle replaces a subject's recurrence. The open pending task
// belongs to the old cadence, so it is cancelled and a fresh one seeded.
func (s *Scheduler) ConfigureCycle(ctx context.Context, kind, id, unit string, interval int) (string, error) {
	if _, err := cycle.ParseUnit(unit); err != nil {
		return "", err
	}
	if interval <= 0 {
		return "", fmt.Errorf("%w: interval must be positive, got %d", cycle.ErrInvalidArgument, interval)
	}
	subject, err := s.subjects.Get(ctx, kind, id)
	if err != nil {
		return "", err
	}
	if subject == nil {
		return "", fmt.Errorf("subject %s/%s: %w", kind, id, ErrNotFound)
	}
	if err := s.subjects.SetCycle(ctx, kind, id, &unit, &interval); err != nil {
		return "", err
	}
	if _, err := s.tasks.CancelPendingForSubject(ctx, kind, id); err != nil {
		return "", err
	}
	return s.seedTask(ctx, kind, id, unit, interval)
}

// RemoveCycle drops the recurrence and cancels the open pending task.
func (s *Scheduler) RemoveCycle(ctx context.Context, kind, id string) error {
	if err := s.subjects.SetCycle(ctx, kind, id, nil, nil); err != nil {
		return err
	}
	_, err := s.tasks.CancelPendingForSubject(ctx, kind, id)
	return err
}

// DisableSubject turns the subject off and cancels its pending tasks.
func (s *Scheduler) DisableSubject(ctx context.Context, kind, id string) error {
	if err := s.subjects.SetEnabled(ctx, kind, id, false); err != nil {
		return err
	}
	_, err := s.tasks.CancelPendingForSubject(ctx, kind, id)
	return err
}

func (s *Scheduler) seedTask(ctx context.Context, kind, id, unit string, interval int) (string, error) {
	u, err := cycle.ParseUnit(unit)
	if err != nil {
		return "", err
	}
	first, err := cycle.Next(u, interval, s.today())
	if err != nil {
		return "", err
	}
	task := repository.ScheduledTask{
		ID:            uuid.NewString(),
		Type:          repository.TaskReconciliation,
		SubjectKind:   kind,
		SubjectID:     id,
		ScheduledDate: &first,
		Status:        repository.StatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

// CreateReview seeds an inactive review task for a subject; it stays
// dormant until ActivateReview flips it pending.
func (s *Scheduler) CreateReview(ctx context.Context, kind, id string) (string, error) {
	task := repository.ScheduledTask{
		ID:          uuid.NewString(),
		Type:        repository.TaskReview,
		SubjectKind: kind,
		SubjectID:   id,
		Status:      repository.StatusInactive,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

// ActivateReview is the external activation signal for a review task.
func (s *Scheduler) ActivateReview(ctx context.Context, taskID string) error {
	return s.tasks.Activate(ctx, taskID)
}

// CompleteReview finishes a pending review task.
func (s *Scheduler) CompleteReview(ctx context.Context, taskID string) error {
	if err := s.tasks.CompleteReview(ctx, taskID, s.today()); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return fmt.Errorf("task %s: %w", taskID, ErrTaskNotPending)
		}
		return err
	}
	return nil
}

// CancelTask cancels any pending task.
func (s *Scheduler) CancelTask(ctx context.Context, taskID string) error {
	if err := s.tasks.Cancel(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return fmt.Errorf("task %s: %w", taskID, ErrTaskNotPending)
		}
		return err
	}
	return nil
}

// Due lists pending reconciliation tasks whose schedule has arrived.
func (s *Scheduler) Due(ctx context.Context) ([]repository.ScheduledTask, error) {
	return s.tasks.ListDue(ctx, s.today())
}

// Pending lists every pending task regardless of schedule.
func (s *Scheduler) Pending(ctx context.Context) ([]repository.ScheduledTask, error) {
	return s.tasks.ListPending(ctx)
}
