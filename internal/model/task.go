package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrEmptyTitle      = errors.New("model: task title is required")
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidStatus   = errors.New("model: invalid status filter")
	ErrInvalidSort     = errors.New("model: invalid sort")
	ErrUpdatedBefore   = errors.New("model: updated_at precedes created_at")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task mirrors the server's task representation. Category and Tags are joins
// filled in by the server and patched locally when labels change.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Category    *Category  `json:"category,omitempty"`
	Tags        []Tag      `json:"tags"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() && t.UpdatedAt.Before(t.CreatedAt) {
		return ErrUpdatedBefore
	}
	return nil
}

func (t Task) TagIDs() []int64 {
	out := make([]int64, 0, len(t.Tags))
	for _, tag := range t.Tags {
		out = append(out, tag.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t Task) HasTag(id int64) bool {
	for _, tag := range t.Tags {
		if tag.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	out := t
	if t.CategoryID != nil {
		v := *t.CategoryID
		out.CategoryID = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		out.DueDate = &v
	}
	if t.Category != nil {
		v := *t.Category
		out.Category = &v
	}
	if t.Tags != nil {
		out.Tags = append([]Tag(nil), t.Tags...)
	}
	return out
}

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if in.Priority != "" && !in.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, in.Priority)
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	CategoryID  *int64
	DueDate     *time.Time
	Priority    *Priority
}

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
	FieldCategoryID  = "category_id"
	FieldDueDate     = "due_date"
	FieldPriority    = "priority"
)

// Values maps every set field to its wire name.
func (p TaskPatch) Values() map[string]any {
	out := make(map[string]any)
	if p.Title != nil {
		out[FieldTitle] = *p.Title
	}
	if p.Description != nil {
		out[FieldDescription] = *p.Description
	}
	if p.Completed != nil {
		out[FieldCompleted] = *p.Completed
	}
	if p.CategoryID != nil {
		out[FieldCategoryID] = *p.CategoryID
	}
	if p.DueDate != nil {
		out[FieldDueDate] = p.DueDate.UTC().Format(time.RFC3339)
	}
	if p.Priority != nil {
		out[FieldPriority] = *p.Priority
	}
	return out
}

func (p TaskPatch) Fields() []string {
	values := p.Values()
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *p.Priority)
	}
	return nil
}
