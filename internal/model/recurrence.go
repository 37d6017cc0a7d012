package model

import (
	"errors"
	"fmt"
	"time"
)

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

func (p RecurrencePattern) IsValid() bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidPattern  = errors.New("model: invalid recurrence pattern")
	ErrInvalidInterval = errors.New("model: invalid recurrence interval")
	ErrMissingAnchor   = errors.New("model: recurrence anchor is required")
)

// RecurringTask generates future instances of OriginalTaskID. Anchor is the
// first occurrence; it is usually the original task's due date.
type RecurringTask struct {
	ID             int64             `json:"id"`
	OriginalTaskID int64             `json:"original_task_id"`
	Pattern        RecurrencePattern `json:"recurrence_pattern"`
	Interval       int               `json:"interval"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	Anchor         time.Time         `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (r RecurringTask) Validate() error {
	if !r.Pattern.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, r.Pattern)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	return nil
}

// NextAfter returns the first occurrence strictly after from, and false once
// the end date has been passed.
func (r RecurringTask) NextAfter(from time.Time) (time.Time, bool, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, false, err
	}
	if r.Anchor.IsZero() {
		return time.Time{}, false, ErrMissingAnchor
	}
	anchor := r.Anchor.UTC()
	from = from.UTC()

	var next time.Time
	if from.Before(anchor) {
		next = anchor
	} else {
		n := r.stepsUntil(anchor, from)
		next = r.step(anchor, n)
		for !next.After(from) {
			n++
			next = r.step(anchor, n)
		}
	}
	if r.EndDate != nil && next.After(r.EndDate.UTC()) {
		return time.Time{}, false, nil
	}
	return next, true, nil
}

func (r RecurringTask) Preview(from time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, count)
	cursor := from
	for len(out) < count {
		next, ok, err := r.NextAfter(cursor)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}

// stepsUntil estimates how many whole intervals separate anchor and t. It may
// undershoot; callers advance until strictly after.
func (r RecurringTask) stepsUntil(anchor, t time.Time) int {
	switch r.Pattern {
	case RecurrenceDaily:
		return int(t.Sub(anchor)/(24*time.Hour)) / r.Interval
	case RecurrenceWeekly:
		return int(t.Sub(anchor)/(7*24*time.Hour)) / r.Interval
	case RecurrenceMonthly:
		months := (t.Year()-anchor.Year())*12 + int(t.Month()-anchor.Month())
		return max(months-1, 0) / r.Interval
	default:
		return max(t.Year()-anchor.Year()-1, 0) / r.Interval
	}
}

func (r RecurringTask) step(anchor time.Time, n int) time.Time {
	k := n * r.Interval
	switch r.Pattern {
	case RecurrenceDaily:
		return anchor.AddDate(0, 0, k)
	case RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7*k)
	case RecurrenceMonthly:
		return addMonthsClamped(anchor, k)
	default:
		return addMonthsClamped(anchor, 12*k)
	}
}

// addMonthsClamped keeps the anchor's day of month, falling back to the last
// day when the target month is shorter.
func addMonthsClamped(anchor time.Time, months int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month(), 1, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location()).AddDate(0, months, 0)
	day := min(anchor.Day(), daysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
