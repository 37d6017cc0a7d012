package model

import (
	"errors"
	"time"
)

var (
	ErrReminderTaskRequired = errors.New("model: reminder task_id is required")
	ErrReminderTimeRequired = errors.New("model: reminder time is required")
)

type Reminder struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"task_id"`
	UserID       int64     `json:"user_id"`
	ReminderTime time.Time `json:"reminder_time"`
	Sent         bool      `json:"sent"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r Reminder) Validate() error {
	if r.TaskID <= 0 {
		return ErrReminderTaskRequired
	}
	if r.ReminderTime.IsZero() {
		return ErrReminderTimeRequired
	}
	return nil
}

// Due reports whether the reminder should fire at now.
func (r Reminder) Due(now time.Time) bool {
	return !r.Sent && !r.ReminderTime.After(now)
}
