// Package cycle provides the calendar arithmetic behind recurring
// reconciliation tasks. It is pure: no I/O, no clock reads.
package cycle

import (
	"errors"
	"fmt"
	"time"
)

// Unit is the granularity of a recurrence cycle.
type Unit string

const (
	Days   Unit = "days"
	Weeks  Unit = "weeks"
	Months Unit = "months"
	Years  Unit = "years"
)

var ErrInvalidArgument = errors.New("invalid cycle argument")

// ParseUnit converts a stored unit string into a Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Days, Weeks, Months, Years:
		return Unit(s), nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidArgument, s)
}

// Next returns the occurrence one interval after from. Month and year
// arithmetic clamps the day-of-month to the last valid day of the target
// month, so Jan 31 plus one month is Feb 28 (or Feb 29 in a leap year),
// never Mar 2.
func Next(unit Unit, interval int, from time.Time) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidArgument, interval)
	}
	switch unit {
	case Days:
		return from.AddDate(0, 0, interval), nil
	case Weeks:
		return from.AddDate(0, 0, 7*interval), nil
	case Months:
		return addMonthsClamped(from, interval), nil
	case Years:
		return addMonthsClamped(from, 12*interval), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidArgument, unit)
}

// NextAfter advances from by whole periods until the result is strictly
// after the given bound. Used when a task executes late: the next schedule
// stays aligned to the original period instead of drifting.
func NextAfter(unit Unit, interval int, from, after time.Time) (time.Time, error) {
	next, err := Next(unit, interval, from)
	if err != nil {
		return time.Time{}, err
	}
	for !next.After(after) {
		next, err = Next(unit, interval, next)
		if err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}

func addMonthsClamped(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	if last := lastDayOfMonth(target); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, from.Location())
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
