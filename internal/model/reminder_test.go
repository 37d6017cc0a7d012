package model

import (
	"errors"
	"testing"
	"time"
)

func TestReminderValidate(t *testing.T) {
	r := Reminder{ID: 1, TaskID: 2, ReminderTime: time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid reminder, got %v", err)
	}

	r.TaskID = 0
	if err := r.Validate(); !errors.Is(err, ErrReminderTaskRequired) {
		t.Fatalf("expected ErrReminderTaskRequired, got %v", err)
	}

	r.TaskID = 2
	r.ReminderTime = time.Time{}
	if err := r.Validate(); !errors.Is(err, ErrReminderTimeRequired) {
		t.Fatalf("expected ErrReminderTimeRequired, got %v", err)
	}
}

func TestReminderDue(t *testing.T) {
	at := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	r := Reminder{ID: 1, TaskID: 2, ReminderTime: at}
	if r.Due(at.Add(-time.Minute)) {
		t.Fatal("reminder should not be due before its time")
	}
	if !r.Due(at) {
		t.Fatal("reminder should be due at its time")
	}
	r.Sent = true
	if r.Due(at.Add(time.Hour)) {
		t.Fatal("sent reminder should never be due")
	}
}
