package model

import (
	"errors"
	"testing"
	"time"
)

func TestRecurringDaily(t *testing.T) {
	rule := RecurringTask{
		Pattern:  RecurrenceDaily,
		Interval: 2,
		Anchor:   time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}
	next, ok, err := rule.NextAfter(time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	if err != nil || !ok {
		t.Fatalf("next daily failed: ok=%v err=%v", ok, err)
	}
	if next.Format("2006-01-02 15:04") != "2026-02-07 08:00" {
		t.Fatalf("unexpected next occurrence: %s", next.Format(time.RFC3339))
	}
}

func TestRecurringWeekly(t *testing.T) {
	rule := RecurringTask{
		Pattern:  RecurrenceWeekly,
		Interval: 2,
		Anchor:   time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC),
	}
	next, ok, err := rule.NextAfter(time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC))
	if err != nil || !ok {
		t.Fatalf("next weekly failed: ok=%v err=%v", ok, err)
	}
	if next.Format("2006-01-02 15:04") != "2026-02-16 10:30" {
		t.Fatalf("unexpected next occurrence: %s", next.Format(time.RFC3339))
	}
}

func TestRecurringMonthlyClampsDay(t *testing.T) {
	rule := RecurringTask{
		Pattern:  RecurrenceMonthly,
		Interval: 1,
		Anchor:   time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
	}
	got, err := rule.Preview(time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	want := []string{"2026-02-28", "2026-03-31", "2026-04-30"}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Format("2006-01-02") != want[i] {
			t.Fatalf("occurrence %d = %s, want %s", i, got[i].Format("2006-01-02"), want[i])
		}
	}
}

func TestRecurringYearlyLeapDay(t *testing.T) {
	rule := RecurringTask{
		Pattern:  RecurrenceYearly,
		Interval: 1,
		Anchor:   time.Date(2028, 2, 29, 12, 0, 0, 0, time.UTC),
	}
	next, ok, err := rule.NextAfter(rule.Anchor)
	if err != nil || !ok {
		t.Fatalf("next yearly failed: ok=%v err=%v", ok, err)
	}
	if next.Format("2006-01-02") != "2029-02-28" {
		t.Fatalf("unexpected next yearly: %s", next.Format(time.RFC3339))
	}
}

func TestRecurringBeforeAnchorReturnsAnchor(t *testing.T) {
	anchor := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rule := RecurringTask{Pattern: RecurrenceWeekly, Interval: 1, Anchor: anchor}
	next, ok, err := rule.NextAfter(anchor.AddDate(0, 0, -10))
	if err != nil || !ok || !next.Equal(anchor) {
		t.Fatalf("expected anchor, got %s ok=%v err=%v", next, ok, err)
	}
}

func TestRecurringStopsAtEndDate(t *testing.T) {
	end := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	rule := RecurringTask{
		Pattern:  RecurrenceDaily,
		Interval: 1,
		Anchor:   time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		EndDate:  &end,
	}
	got, err := rule.Preview(rule.Anchor, 10)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences before end date, got %d", len(got))
	}
}

func TestRecurringValidate(t *testing.T) {
	rule := RecurringTask{Pattern: "hourly", Interval: 1}
	if err := rule.Validate(); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	rule = RecurringTask{Pattern: RecurrenceDaily, Interval: 0}
	if err := rule.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	rule = RecurringTask{Pattern: RecurrenceDaily, Interval: 1}
	if _, _, err := rule.NextAfter(time.Now()); !errors.Is(err, ErrMissingAnchor) {
		t.Fatalf("expected ErrMissingAnchor, got %v", err)
	}
}
