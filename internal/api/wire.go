package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

// wireTime accepts the timestamp shapes the backend emits: RFC3339 with or
// without a zone, and bare calendar dates. Zoneless values are taken as UTC.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		w.Time = time.Time{}
		return nil
	}
	t, err := parseWireTime(s)
	if err != nil {
		return err
	}
	w.Time = t
	return nil
}

func parseWireTime(s string) (time.Time, error) {
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("api: unrecognized timestamp %q", s)
}

func (w *wireTime) ptr() *time.Time {
	if w == nil || w.IsZero() {
		return nil
	}
	t := w.Time
	return &t
}

type wireCategory struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

func (w wireCategory) model() model.Category {
	return model.Category{ID: w.ID, UserID: w.UserID, Name: w.Name, Color: w.Color, CreatedAt: w.CreatedAt.Time, UpdatedAt: w.UpdatedAt.Time}
}

type wireTag struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Name      string   `json:"name"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

func (w wireTag) model() model.Tag {
	return model.Tag{ID: w.ID, UserID: w.UserID, Name: w.Name, CreatedAt: w.CreatedAt.Time, UpdatedAt: w.UpdatedAt.Time}
}

type wireTask struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Completed   bool          `json:"completed"`
	CategoryID  *int64        `json:"category_id"`
	DueDate     *wireTime     `json:"due_date"`
	Priority    string        `json:"priority"`
	CreatedAt   wireTime      `json:"created_at"`
	UpdatedAt   wireTime      `json:"updated_at"`
	Category    *wireCategory `json:"category"`
	Tags        []wireTag     `json:"tags"`
}

func (w wireTask) model() model.Task {
	out := model.Task{
		ID:         w.ID,
		UserID:     w.UserID,
		Title:      w.Title,
		Completed:  w.Completed,
		CategoryID: w.CategoryID,
		DueDate:    w.DueDate.ptr(),
		Priority:   model.Priority(w.Priority),
		CreatedAt:  w.CreatedAt.Time,
		UpdatedAt:  w.UpdatedAt.Time,
		Tags:       make([]model.Tag, 0, len(w.Tags)),
	}
	if w.Description != nil {
		out.Description = *w.Description
	}
	if out.Priority == "" {
		out.Priority = model.PriorityMedium
	}
	if w.Category != nil {
		c := w.Category.model()
		out.Category = &c
	}
	for _, tag := range w.Tags {
		out.Tags = append(out.Tags, tag.model())
	}
	return out
}

type wireUser struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Name      *string  `json:"name"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

func (w wireUser) model() model.User {
	out := model.User{ID: w.ID, Email: w.Email, CreatedAt: w.CreatedAt.Time, UpdatedAt: w.UpdatedAt.Time}
	if w.Name != nil {
		out.Name = *w.Name
	}
	return out
}

type wireReminder struct {
	ID           int64    `json:"id"`
	TaskID       int64    `json:"task_id"`
	UserID       int64    `json:"user_id"`
	ReminderTime wireTime `json:"reminder_time"`
	Sent         bool     `json:"sent"`
	CreatedAt    wireTime `json:"created_at"`
}

func (w wireReminder) model() model.Reminder {
	return model.Reminder{ID: w.ID, TaskID: w.TaskID, UserID: w.UserID, ReminderTime: w.ReminderTime.Time, Sent: w.Sent, CreatedAt: w.CreatedAt.Time}
}

type wireRecurring struct {
	ID             int64     `json:"id"`
	OriginalTaskID int64     `json:"original_task_id"`
	Pattern        string    `json:"recurrence_pattern"`
	Interval       int       `json:"interval"`
	EndDate        *wireTime `json:"end_date"`
	CreatedAt      wireTime  `json:"created_at"`
	UpdatedAt      wireTime  `json:"updated_at"`
}

func (w wireRecurring) model() model.RecurringTask {
	return model.RecurringTask{
		ID:             w.ID,
		OriginalTaskID: w.OriginalTaskID,
		Pattern:        model.RecurrencePattern(w.Pattern),
		Interval:       w.Interval,
		EndDate:        w.EndDate.ptr(),
		CreatedAt:      w.CreatedAt.Time,
		UpdatedAt:      w.UpdatedAt.Time,
	}
}

// DecodeTask decodes a task as the backend serializes it.
func DecodeTask(raw []byte) (model.Task, error) {
	var w wireTask
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Task{}, err
	}
	return w.model(), nil
}

func DecodeCategory(raw []byte) (model.Category, error) {
	var w wireCategory
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Category{}, err
	}
	return w.model(), nil
}

func DecodeTag(raw []byte) (model.Tag, error) {
	var w wireTag
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Tag{}, err
	}
	return w.model(), nil
}
